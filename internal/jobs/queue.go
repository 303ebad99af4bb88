package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrQueueClosed is returned by Schedule after Close
	ErrQueueClosed = errors.New("enrichment queue closed")
	// ErrQueueFull is returned when the buffer has no room left
	ErrQueueFull = errors.New("enrichment queue full")
)

// Runner executes a single enrichment job
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// QueueOptions tunes a Queue
type QueueOptions struct {
	Workers    int
	Size       int
	DedupTTL   time.Duration
	RetryStep  time.Duration
	MaxRetries int
	// NewTimer overrides the retry clock, one timer per job; nil sleeps for real
	NewTimer func() backoff.Timer
}

// Queue runs enrichment jobs on a fixed set of workers. A job for an entity
// that is already waiting or running is dropped.
type Queue struct {
	jobs    chan Job
	runner  Runner
	opts    QueueOptions
	pending *cache.Cache
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  zerolog.Logger

	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewQueue creates a queue; call Start to begin processing
func NewQueue(runner Runner, opts QueueOptions, m *metrics.Metrics, tracer trace.Tracer, logger zerolog.Logger) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Size <= 0 {
		opts.Size = opts.Workers * 2
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = 30 * time.Minute
	}
	return &Queue{
		jobs:    make(chan Job, opts.Size),
		runner:  runner,
		opts:    opts,
		pending: cache.New(opts.DedupTTL, 2*opts.DedupTTL),
		metrics: m,
		tracer:  tracer,
		logger:  logger.With().Str("component", "queue").Logger(),
	}
}

func jobKey(kind Kind, externalID string) string {
	return string(kind) + ":" + externalID
}

// Schedule enqueues an enrichment without blocking. Duplicates of a job
// still pending are accepted silently.
func (q *Queue) Schedule(kind Kind, externalID string) error {
	if externalID == "" {
		return nil
	}

	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	key := jobKey(kind, externalID)
	if err := q.pending.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		q.logger.Debug().Str("job", key).Msg("Job already pending")
		return nil
	}

	job := Job{ID: uuid.NewString(), Kind: kind, ExternalID: externalID}
	select {
	case q.jobs <- job:
		q.metrics.QueueDepth.Inc()
		return nil
	default:
		q.pending.Delete(key)
		q.logger.Warn().Str("job", key).Msg("Queue full, dropping job")
		return ErrQueueFull
	}
}

// Start launches the workers. They stop when ctx is done or after Close
// once the buffer is drained.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-q.jobs:
					if !ok {
						return
					}
					q.metrics.QueueDepth.Dec()
					q.process(ctx, job)
					q.pending.Delete(jobKey(job.Kind, job.ExternalID))
				}
			}
		}()
	}
}

// Close stops accepting jobs and waits for the workers to finish
func (q *Queue) Close() {
	q.closeMu.Lock()
	if q.closed {
		q.closeMu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.closeMu.Unlock()
	q.wg.Wait()
}

func (q *Queue) process(ctx context.Context, job Job) {
	ctx, span := q.tracer.Start(ctx, "enrich."+string(job.Kind), trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.external_id", job.ExternalID),
	))
	defer span.End()

	log := q.logger.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Str("external_id", job.ExternalID).Logger()

	retrier := utils.Retrier{Step: q.opts.RetryStep, MaxRetries: q.opts.MaxRetries}
	if q.opts.NewTimer != nil {
		retrier.Timer = q.opts.NewTimer()
	}

	attempts := 0
	err := retrier.Do(func() error {
		attempts++
		err := q.runner.Run(ctx, job)
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return backoff.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", wait).Msg("Enrichment failed, retrying")
	})
	span.SetAttributes(attribute.Int("job.attempts", attempts))

	var verr *models.ValidationError
	switch {
	case err == nil:
		q.metrics.EnrichmentJobs.WithLabelValues(string(job.Kind), "enriched").Inc()
		log.Debug().Int("attempts", attempts).Msg("Job finished")
	case errors.As(err, &verr):
		q.metrics.EnrichmentJobs.WithLabelValues(string(job.Kind), "invalid").Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Msg("Enrichment rejected, not retrying")
	default:
		q.metrics.EnrichmentJobs.WithLabelValues(string(job.Kind), "exhausted").Inc()
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Int("attempts", attempts).Msg("Enrichment gave up")
	}
}
