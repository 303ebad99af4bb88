package controllers

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *models.Database {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := models.NewDatabase("sqlite", "file:controllers_"+name+"?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingScheduler remembers every job it is handed
type recordingScheduler struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (s *recordingScheduler) Schedule(kind jobs.Kind, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, string(kind)+":"+externalID)
	return nil
}

func (s *recordingScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.jobs...)
}

// instantTimer fires immediately and remembers each wait
type instantTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }
