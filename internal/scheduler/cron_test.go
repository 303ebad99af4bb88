package scheduler

import (
	"context"
	"testing"

	"github.com/amaumene/releasarr/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := &config.Config{
		ImportSchedule:  "0 */6 * * *",
		CleanupSchedule: "every tuesday",
		EnrichSchedule:  "15 * * * *",
	}
	s := NewScheduler(cfg, nil, nil, nil, zerolog.Nop())

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "cleanup")
	assert.Len(t, s.cron.Entries(), 1)
}
