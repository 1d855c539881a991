// internal/analysis/listener/listener.go
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"resume-analyzer/internal/common/channel"
	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/common/metrics"
	"resume-analyzer/internal/common/observability"
	"resume-analyzer/internal/common/validation"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/store"
	"resume-analyzer/pkg/registry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrSubscriptionClosed = errors.New("response subscription closed")

// Config holds listener settings.
type Config struct {
	ResponseTopic string
	Consumers     int
}

// CompletionHook runs after a response has been persisted. late is true when
// no submission was waiting for the result any more.
type CompletionHook interface {
	OnCompleted(ctx context.Context, a *models.Analysis, late bool) error
}

// Listener consumes response frames, persists them and wakes the matching
// waiter if one is still registered.
type Listener struct {
	config     *Config
	subscriber channel.Subscriber
	store      store.RecordStore
	registry   *registry.Registry[*models.Analysis]
	validator  *validation.SchemaValidator
	hooks      []CompletionHook
	obs        *observability.Observability
	logger     logger.Logger
}

func NewListener(
	config *Config,
	subscriber channel.Subscriber,
	recordStore store.RecordStore,
	reg *registry.Registry[*models.Analysis],
	obs *observability.Observability,
	log logger.Logger,
	hooks ...CompletionHook,
) (*Listener, error) {
	v, err := validation.NewSchemaValidator(responseFrameSchema)
	if err != nil {
		return nil, err
	}
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	return &Listener{
		config:     config,
		subscriber: subscriber,
		store:      recordStore,
		registry:   reg,
		validator:  v,
		hooks:      hooks,
		obs:        obs,
		logger:     log.With(map[string]interface{}{"component": "listener"}),
	}, nil
}

// Run subscribes to the response topic and drains it with the configured
// number of consumers. It returns nil once ctx is cancelled, or
// ErrSubscriptionClosed if the transport ends the stream first.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.subscriber.Subscribe(ctx, l.config.ResponseTopic)
	if err != nil {
		return err
	}
	defer sub.Close()

	l.logger.Info("Listening for responses", map[string]interface{}{
		"topic":     l.config.ResponseTopic,
		"consumers": l.config.Consumers,
	})

	var wg sync.WaitGroup
	for i := 0; i < l.config.Consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-sub.C():
					if !ok {
						return
					}
					l.process(ctx, raw)
				}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		l.logger.Info("Listener stopped", nil)
		return nil
	}
	return ErrSubscriptionClosed
}

// process isolates one message: errors are logged and a panic never reaches
// the consumer loop.
func (l *Listener) process(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ResponsesTotal.WithLabelValues(metrics.ResponsePanic).Inc()
			l.logger.Error("Recovered from panic while handling response", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	if err := l.HandleMessage(ctx, raw); err != nil {
		l.logger.Warn("Response frame dropped", map[string]interface{}{"error": err})
	}
}

// HandleMessage applies one response frame. A non-nil error means the frame
// was dropped; callers only log it.
func (l *Listener) HandleMessage(ctx context.Context, raw []byte) error {
	ctx, span := l.obs.StartSpan(ctx, "analysis.response")
	defer span.End()

	frame, err := l.decode(raw)
	if err != nil {
		l.record(ctx, metrics.ResponseMalformed)
		span.SetStatus(codes.Error, "malformed response")
		return err
	}

	id := *frame.CorrelationID
	span.SetAttributes(attribute.Int64("correlation_id", id))
	log := logger.ForCorrelation(l.logger, id)

	record, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			l.record(ctx, metrics.ResponseUnknownID)
			return apperrors.NewUnknownCorrelationIDError(id)
		}
		l.record(ctx, metrics.ResponseStoreFail)
		span.RecordError(err)
		log.Error("Failed to load record for response", map[string]interface{}{"error": err})
		return err
	}

	applyResult(record, frame.Result)

	if err := l.store.Update(ctx, record); err != nil {
		l.record(ctx, metrics.ResponseStoreFail)
		span.RecordError(err)
		log.Error("Failed to persist response", map[string]interface{}{"error": err})
		return err
	}

	late := !l.registry.Complete(id, record)
	if late {
		l.record(ctx, metrics.ResponseLate)
		log.Info("Response persisted with no waiting submission", nil)
	} else {
		l.record(ctx, metrics.ResponseApplied)
		log.Debug("Response delivered to waiting submission", nil)
	}

	for _, hook := range l.hooks {
		if err := hook.OnCompleted(ctx, record, late); err != nil {
			log.Warn("Completion hook failed", map[string]interface{}{
				"hook":  fmt.Sprintf("%T", hook),
				"error": err,
			})
		}
	}
	return nil
}

func (l *Listener) decode(raw []byte) (*models.ResponseFrame, error) {
	if err := l.validator.Validate(raw); err != nil {
		return nil, apperrors.NewMalformedResponseError(err.Error())
	}
	frame, err := models.DecodeResponseFrame(raw)
	if err != nil {
		return nil, apperrors.NewMalformedResponseError(err.Error())
	}
	return frame, nil
}

func (l *Listener) record(ctx context.Context, outcome string) {
	metrics.ResponsesTotal.WithLabelValues(outcome).Inc()
	l.obs.RecordResponse(ctx, outcome)
}

// applyResult copies the fields present in r onto a and promotes the record
// out of its placeholder state.
func applyResult(a *models.Analysis, r *models.ResponseResult) {
	if r.Score != nil {
		score := *r.Score
		a.Score = &score
	}
	if r.Summary != nil {
		a.Summary = *r.Summary
	}
	if r.MatchedSkills != nil {
		a.Strengths = append([]string(nil), r.MatchedSkills...)
	}
	if r.MissingSkills != nil {
		a.Gaps = append([]string(nil), r.MissingSkills...)
	}
	if r.Recommendations != nil {
		joined := r.Recommendations.Joined()
		a.Recommendation = &joined
	}

	a.Status = models.StatusCompleted
	if a.Label == "" || a.Label == models.LabelPending {
		a.Label = models.LabelCompleted
	}
}
