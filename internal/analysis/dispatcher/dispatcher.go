// internal/analysis/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-analyzer/internal/common/channel"
	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/common/metrics"
	"resume-analyzer/internal/common/observability"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/store"
	"resume-analyzer/pkg/registry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxSafeID keeps ids exact for JSON consumers that decode numbers as doubles.
const maxSafeID = 1<<53 - 1

// Config holds dispatcher settings.
type Config struct {
	RequestTopic   string
	WaitTimeout    time.Duration
	TimeoutMessage string
}

// Dispatcher turns a submission into a correlated request and blocks until the
// matching response arrives or the wait window closes.
type Dispatcher struct {
	config    *Config
	store     store.RecordStore
	registry  *registry.Registry[*models.Analysis]
	publisher channel.Publisher
	obs       *observability.Observability
	logger    logger.Logger

	newID func() int64
	now   func() time.Time
}

func NewDispatcher(
	config *Config,
	recordStore store.RecordStore,
	reg *registry.Registry[*models.Analysis],
	publisher channel.Publisher,
	obs *observability.Observability,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		store:     recordStore,
		registry:  reg,
		publisher: publisher,
		obs:       obs,
		logger:    log.With(map[string]interface{}{"component": "dispatcher"}),
		newID:     NewCorrelationID,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewCorrelationID derives a positive id from a random UUID.
func NewCorrelationID() int64 {
	u := uuid.New()
	var v uint64
	for _, b := range u[8:] {
		v = v<<8 | uint64(b)
	}
	id := int64(v & maxSafeID)
	if id == 0 {
		return NewCorrelationID()
	}
	return id
}

// Submit publishes payload and waits for its response. A response within the
// wait window yields a COMPLETED result; otherwise a PENDING_TIMEOUT result is
// returned with a nil error. Errors are returned only when the request could
// not be recorded or published, or when ctx ends first.
func (d *Dispatcher) Submit(ctx context.Context, payload models.RequestPayload) (*models.Result, error) {
	return d.SubmitWithFile(ctx, payload, "")
}

// SubmitWithFile is Submit for payloads that reference an uploaded object.
func (d *Dispatcher) SubmitWithFile(ctx context.Context, payload models.RequestPayload, fileKey string) (*models.Result, error) {
	startTime := time.Now()
	id := d.newID()

	ctx, span := d.obs.StartSpan(ctx, "analysis.submit", attribute.Int64("correlation_id", id))
	defer span.End()

	log := logger.ForCorrelation(d.logger, id)

	outcome := metrics.OutcomeCompleted
	defer func() {
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
		metrics.WaitDuration.WithLabelValues(outcome).Observe(time.Since(startTime).Seconds())
		d.obs.RecordSubmission(ctx, outcome, time.Since(startTime))
	}()

	record := models.NewPendingAnalysis(id, payload, fileKey, d.now())
	if err := d.store.Create(ctx, record); err != nil {
		outcome = metrics.OutcomeStoreUnavailable
		span.RecordError(err)
		span.SetStatus(codes.Error, "store unavailable")
		log.Error("Failed to write pending record", map[string]interface{}{"error": err})
		if !errors.Is(err, apperrors.ErrStoreUnavailable) {
			err = apperrors.NewStoreUnavailableError("create", err)
		}
		return nil, err
	}

	waiter, err := d.registry.Register(id)
	if err != nil {
		outcome = metrics.OutcomeCancelled
		span.RecordError(err)
		log.Error("Failed to register waiter", map[string]interface{}{"error": err})
		return nil, fmt.Errorf("register waiter: %w", err)
	}
	defer d.registry.Remove(id)

	metrics.WaitersInFlight.Inc()
	defer metrics.WaitersInFlight.Dec()

	frame, err := json.Marshal(models.RequestFrame{CorrelationID: id, Payload: payload})
	if err != nil {
		outcome = metrics.OutcomeChannelUnavailable
		return nil, apperrors.NewChannelUnavailableError(d.config.RequestTopic, err)
	}

	if err := d.publisher.Publish(ctx, d.config.RequestTopic, frame); err != nil {
		outcome = metrics.OutcomeChannelUnavailable
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel unavailable")
		log.Error("Failed to publish request frame", map[string]interface{}{
			"topic": d.config.RequestTopic,
			"error": err,
		})
		if !errors.Is(err, apperrors.ErrChannelUnavailable) {
			err = apperrors.NewChannelUnavailableError(d.config.RequestTopic, err)
		}
		return nil, err
	}

	log.Debug("Request published, waiting for response", map[string]interface{}{
		"timeout_ms": d.config.WaitTimeout.Milliseconds(),
	})

	waitCtx, cancel := context.WithTimeout(ctx, d.config.WaitTimeout)
	defer cancel()

	completed, err := waiter.Wait(waitCtx)
	if err == nil {
		span.SetAttributes(attribute.String("analysis.status", string(models.ResultCompleted)))
		log.Info("Analysis completed", map[string]interface{}{
			"duration_ms": time.Since(startTime).Milliseconds(),
		})
		return models.CompletedResult(completed), nil
	}

	// A response may land between the deadline and the cleanup; Remove
	// settles the race, after which Result is authoritative.
	d.registry.Remove(id)
	if completed, ok := waiter.Result(); ok {
		return models.CompletedResult(completed), nil
	}

	if ctx.Err() != nil {
		outcome = metrics.OutcomeCancelled
		log.Warn("Submission abandoned by caller", map[string]interface{}{"error": ctx.Err()})
		return nil, ctx.Err()
	}

	outcome = metrics.OutcomePendingTimeout
	span.SetAttributes(attribute.String("analysis.status", string(models.ResultPendingTimeout)))
	log.Info("No response within wait window, returning pending result", map[string]interface{}{
		"timeout_ms": d.config.WaitTimeout.Milliseconds(),
		"reason":     err.Error(),
	})
	return models.TimeoutResult(id, d.config.TimeoutMessage), nil
}
