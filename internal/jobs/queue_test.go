package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/tracing"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately and reports each wait to record
type instantTimer struct {
	record func(time.Duration)
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.record(d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

type scriptedRunner struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(job Job, call int) error
}

func (r *scriptedRunner) Run(_ context.Context, job Job) error {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[job.ExternalID]++
	n := r.calls[job.ExternalID]
	r.mu.Unlock()
	if r.fn == nil {
		return nil
	}
	return r.fn(job, n)
}

func (r *scriptedRunner) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

type waitLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitLog) add(d time.Duration) {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
}

func newTestQueue(runner Runner, size int, waits *waitLog) (*Queue, *metrics.Metrics) {
	m := metrics.New()
	opts := QueueOptions{
		Workers:    2,
		Size:       size,
		RetryStep:  30 * time.Second,
		MaxRetries: 5,
		NewTimer: func() backoff.Timer {
			return &instantTimer{record: waits.add}
		},
	}
	tracer := tracing.Tracer(tracing.NewProvider(zerolog.Nop(), 1))
	return NewQueue(runner, opts, m, tracer, zerolog.Nop()), m
}

func TestQueueDeduplicatesPendingJobs(t *testing.T) {
	runner := &scriptedRunner{}
	q, m := newTestQueue(runner, 10, &waitLog{})

	require.NoError(t, q.Schedule(KindShow, "1"))
	require.NoError(t, q.Schedule(KindShow, "1"))
	require.NoError(t, q.Schedule(KindEpisode, "1"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))

	q.Start(context.Background())
	q.Close()

	assert.Equal(t, 2, runner.count("1"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentJobs.WithLabelValues("show", "enriched")))
}

func TestQueueFull(t *testing.T) {
	q, _ := newTestQueue(&scriptedRunner{}, 1, &waitLog{})

	require.NoError(t, q.Schedule(KindShow, "1"))
	assert.ErrorIs(t, q.Schedule(KindShow, "2"), ErrQueueFull)

	// a rejected job is not remembered as pending
	q.Start(context.Background())
	q.Close()
}

func TestQueueClosed(t *testing.T) {
	q, _ := newTestQueue(&scriptedRunner{}, 4, &waitLog{})
	q.Close()
	assert.ErrorIs(t, q.Schedule(KindShow, "1"), ErrQueueClosed)
	q.Close()
}

func TestQueueIgnoresBlankID(t *testing.T) {
	q, m := newTestQueue(&scriptedRunner{}, 4, &waitLog{})
	require.NoError(t, q.Schedule(KindShow, ""))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
	q.Close()
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	runner := &scriptedRunner{fn: func(_ Job, call int) error {
		if call < 3 {
			return errors.New("upstream down")
		}
		return nil
	}}
	waits := &waitLog{}
	q, m := newTestQueue(runner, 4, waits)

	require.NoError(t, q.Schedule(KindNetwork, "7"))
	q.Start(context.Background())
	q.Close()

	assert.Equal(t, 3, runner.count("7"))
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, waits.waits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentJobs.WithLabelValues("network", "enriched")))
}

func TestQueueGivesUpAfterRetries(t *testing.T) {
	runner := &scriptedRunner{fn: func(Job, int) error { return errors.New("boom") }}
	waits := &waitLog{}
	q, m := newTestQueue(runner, 4, waits)

	require.NoError(t, q.Schedule(KindEpisode, "9"))
	q.Start(context.Background())
	q.Close()

	assert.Equal(t, 6, runner.count("9"))
	assert.Len(t, waits.waits, 5)
	assert.Equal(t, 150*time.Second, waits.waits[4])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentJobs.WithLabelValues("episode", "exhausted")))
}

func TestQueueDoesNotRetryValidationErrors(t *testing.T) {
	runner := &scriptedRunner{fn: func(Job, int) error {
		return &models.ValidationError{Entity: "show", Field: "title", Reason: "can't be blank"}
	}}
	waits := &waitLog{}
	q, m := newTestQueue(runner, 4, waits)

	require.NoError(t, q.Schedule(KindShow, "3"))
	q.Start(context.Background())
	q.Close()

	assert.Equal(t, 1, runner.count("3"))
	assert.Empty(t, waits.waits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrichmentJobs.WithLabelValues("show", "invalid")))
}

func TestQueueAcceptsJobAgainAfterCompletion(t *testing.T) {
	runner := &scriptedRunner{}
	q, _ := newTestQueue(runner, 4, &waitLog{})
	q.Start(context.Background())

	require.NoError(t, q.Schedule(KindShow, "1"))
	require.Eventually(t, func() bool { return runner.count("1") == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, pending := q.pending.Get(jobKey(KindShow, "1"))
		return !pending
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Schedule(KindShow, "1"))
	q.Close()
	assert.Equal(t, 2, runner.count("1"))
}
