package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(showID, episodeID, networkID, webChannelID string) extractor.ReleaseRecord {
	return extractor.ReleaseRecord{
		Date:         "2025-06-17",
		Time:         "21:00",
		ShowID:       extractor.ExternalID(showID),
		EpisodeID:    extractor.ExternalID(episodeID),
		NetworkID:    extractor.ExternalID(networkID),
		WebChannelID: extractor.ExternalID(webChannelID),
	}
}

func TestReconcileCreatesPlaceholders(t *testing.T) {
	db := setupTestDB(t)
	sched := &recordingScheduler{}
	r := NewReconciler(db, sched, zerolog.Nop())
	ctx := context.Background()

	outcome, err := r.Reconcile(ctx, record("10", "100", "5", ""))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeImported, outcome)

	n, err := db.GetNetwork(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Network 5", n.Name)
	assert.False(t, n.Enriched)

	ep, err := db.GetEpisode(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "TBD", ep.Code())

	assert.ElementsMatch(t, []string{"show:10", "network:5", "episode:100"}, sched.scheduled())
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	r := NewReconciler(db, &recordingScheduler{}, zerolog.Nop())
	ctx := context.Background()
	rec := record("10", "100", "", "3")

	first, err := r.Reconcile(ctx, rec)
	require.NoError(t, err)
	second, err := r.Reconcile(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeImported, first)
	assert.Equal(t, models.OutcomeSkipped, second)
	n, err := db.CountReleases(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReconcileUnspecifiedBroadcaster(t *testing.T) {
	db := setupTestDB(t)
	r := NewReconciler(db, &recordingScheduler{}, zerolog.Nop())
	ctx := context.Background()

	for _, rec := range []extractor.ReleaseRecord{record("10", "100", "", ""), record("10", "100", "1", "2")} {
		outcome, err := r.Reconcile(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeSkipped, outcome)
	}

	counts, err := db.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Networks+counts.WebChannels+counts.Shows+counts.Episodes+counts.Releases)
}

func TestReconcileMalformedRecordWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	r := NewReconciler(db, &recordingScheduler{}, zerolog.Nop())
	ctx := context.Background()

	badDate := record("10", "100", "5", "")
	badDate.Date = "someday"
	_, err := r.Reconcile(ctx, badDate)
	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "date", recErr.Field)
	assert.ErrorIs(t, err, utils.ErrInvalidDate)

	badTime := record("10", "100", "5", "")
	badTime.Time = "late"
	_, err = r.Reconcile(ctx, badTime)
	assert.ErrorIs(t, err, utils.ErrInvalidTime)

	missing := record("", "100", "5", "")
	_, err = r.Reconcile(ctx, missing)
	assert.True(t, errors.As(err, &recErr))

	counts, err := db.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Networks+counts.Shows+counts.Episodes)
}

func TestReconcileDecodeErrorPassesThrough(t *testing.T) {
	r := NewReconciler(setupTestDB(t), &recordingScheduler{}, zerolog.Nop())
	boom := errors.New("undecodable")
	_, err := r.Reconcile(context.Background(), extractor.ReleaseRecord{Err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestResolveBroadcasterByNameHint(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	hbo, _, err := db.CreateBroadcaster(ctx, models.BroadcasterNetwork, "1", "HBO")
	require.NoError(t, err)
	showtime, _, err := db.CreateBroadcaster(ctx, models.BroadcasterNetwork, "2", "Showtime")
	require.NoError(t, err)
	r := NewReconciler(db, &recordingScheduler{}, zerolog.Nop())

	t.Run("exact after normalizing", func(t *testing.T) {
		b, err := r.ResolveBroadcaster(ctx, models.NewBroadcasterRef("99", "", "HBO Network", ""))
		require.NoError(t, err)
		assert.Equal(t, hbo.ID, b.ID)
		assert.Equal(t, "1", b.ExternalID, "first writer keeps its external id")
	})

	t.Run("fuzzy", func(t *testing.T) {
		b, err := r.ResolveBroadcaster(ctx, models.NewBroadcasterRef("98", "", "Showtimes", ""))
		require.NoError(t, err)
		assert.Equal(t, showtime.ID, b.ID)
	})

	t.Run("new name", func(t *testing.T) {
		b, err := r.ResolveBroadcaster(ctx, models.NewBroadcasterRef("97", "", "the criterion channel", ""))
		require.NoError(t, err)
		assert.Equal(t, "97", b.ExternalID)
		assert.Equal(t, "The Criterion", b.Name)
	})

	t.Run("known id wins over hint", func(t *testing.T) {
		b, err := r.ResolveBroadcaster(ctx, models.NewBroadcasterRef("2", "", "HBO", ""))
		require.NoError(t, err)
		assert.Equal(t, showtime.ID, b.ID)
	})

	t.Run("hint that normalizes to nothing", func(t *testing.T) {
		b, err := r.ResolveBroadcaster(ctx, models.NewBroadcasterRef("96", "", "TV Network", ""))
		require.NoError(t, err)
		assert.Equal(t, "Network 96", b.Name)
	})

	_, err = r.ResolveBroadcaster(ctx, models.BroadcasterRef{})
	assert.ErrorIs(t, err, ErrUnspecifiedBroadcaster)
}

func TestReconcileKeepsFirstBroadcasterOfShow(t *testing.T) {
	db := setupTestDB(t)
	r := NewReconciler(db, &recordingScheduler{}, zerolog.Nop())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, record("10", "100", "5", ""))
	require.NoError(t, err)
	_, err = r.Reconcile(ctx, record("10", "101", "", "7"))
	require.NoError(t, err)

	show, err := db.GetShow(ctx, "10")
	require.NoError(t, err)
	kind, _ := show.Broadcaster()
	assert.Equal(t, models.BroadcasterNetwork, kind)
}
