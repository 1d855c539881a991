// internal/notify/sns.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsPublisher is the subset of *sns.Client the notifier needs.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier announces completed analyses on an SNS topic.
type SNSNotifier struct {
	client   snsPublisher
	topicARN string
	logger   logger.Logger
	now      func() time.Time
}

func NewSNSNotifier(ctx context.Context, region, topicARN string, log logger.Logger) (*SNSNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSNSNotifier(sns.NewFromConfig(cfg), topicARN, log), nil
}

func newSNSNotifier(client snsPublisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		logger:   log.With(map[string]interface{}{"component": "sns-notifier"}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OnCompleted publishes an analysis.completed event.
func (n *SNSNotifier) OnCompleted(ctx context.Context, a *models.Analysis, late bool) error {
	result := models.CompletedResult(a)
	event := models.CompletionEvent{
		Type:             models.EventAnalysisCompleted,
		AnalysisID:       a.ID,
		SuitabilityScore: result.SuitabilityScore,
		IsSuitable:       result.IsSuitable,
		Late:             late,
		CompletedAt:      n.now().Format(time.RFC3339),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(models.EventAnalysisCompleted),
			},
			"late": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.FormatBool(late)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}

	n.logger.Debug("Completion event published", map[string]interface{}{
		"analysisId": a.ID,
		"messageId":  aws.ToString(out.MessageId),
	})
	return nil
}
