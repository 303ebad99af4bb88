package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amaumene/releasarr/internal/api/handlers"
	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *models.Database {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := models.NewDatabase("sqlite", "file:api_"+name+"?mode=memory&cache=shared", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// seed stores an HBO (US) show with three releases and a Netflix show with one
func seed(t *testing.T, db *models.Database) (hbo, netflix *models.Broadcaster) {
	t.Helper()
	ctx := context.Background()

	us, err := db.ResolveCountry(ctx, "US", "United States")
	require.NoError(t, err)
	hbo, _, err = db.CreateBroadcaster(ctx, models.BroadcasterNetwork, "8", "HBO")
	require.NoError(t, err)
	n, err := db.GetNetwork(ctx, "8")
	require.NoError(t, err)
	n.CountryID = &us.ID
	require.NoError(t, db.SaveNetwork(ctx, n))
	netflix, _, err = db.CreateBroadcaster(ctx, models.BroadcasterWebChannel, "1", "Netflix")
	require.NoError(t, err)

	addShow := func(showID, title string, b *models.Broadcaster, dates ...string) {
		show, _, err := db.ResolveShow(ctx, showID, b)
		require.NoError(t, err)
		show.Title = title
		show.Enriched = true
		require.NoError(t, db.UpdateShow(ctx, show))
		for i, date := range dates {
			ep, _, err := db.ResolveEpisode(ctx, fmt.Sprintf("%s-%d", showID, i), show)
			require.NoError(t, err)
			d, err := time.Parse("2006-01-02", date)
			require.NoError(t, err)
			_, _, err = db.ResolveRelease(ctx, ep, d, "21:00:00")
			require.NoError(t, err)
		}
	}
	addShow("10", "The Wire", hbo, "2025-06-17", "2025-06-24", "2025-07-01")
	addShow("20", "Stranger Things", netflix, "2025-06-20")
	return hbo, netflix
}

func newTestServer(t *testing.T) (*Server, *models.Database) {
	t.Helper()
	db := setupTestDB(t)
	return NewServer(&config.Config{ServerPort: "0"}, db, metrics.New(), zerolog.Nop()), db
}

func get(t *testing.T, s *Server, target string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestStatusCountsPlaceholders(t *testing.T) {
	s, db := newTestServer(t)
	seed(t, db)

	code, body := get(t, s, "/status")
	require.Equal(t, http.StatusOK, code)

	var counts models.Counts
	require.NoError(t, json.Unmarshal(body, &counts))
	assert.Equal(t, int64(4), counts.Releases)
	assert.Equal(t, int64(1), counts.Networks)
	assert.Equal(t, int64(1), counts.PendingNetworks)
	assert.Equal(t, int64(0), counts.PendingShows)
	assert.Equal(t, int64(4), counts.PendingEpisodes)
}

func TestReleasesPaging(t *testing.T) {
	s, db := newTestServer(t)
	seed(t, db)

	code, body := get(t, s, "/api/v1/releases?per_page=3")
	require.Equal(t, http.StatusOK, code)

	var page handlers.ReleasesResponse
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Releases, 3)
	assert.Equal(t, "2025-06-17", page.Releases[0].AirDate)
	assert.Equal(t, "2025-06-20", page.Releases[1].AirDate)
	assert.Equal(t, "Stranger Things", page.Releases[1].Episode.Show.Title)
	require.NotNil(t, page.Releases[1].Episode.Show.WebChannel)
	assert.Equal(t, "Netflix", page.Releases[1].Episode.Show.WebChannel.Name)
	assert.Equal(t, "TBD", page.Releases[0].Episode.Code)
	assert.Equal(t, int64(4), page.Meta.TotalCount)
	assert.True(t, page.Meta.HasMore)
	require.NotNil(t, page.Meta.NextPage)
	assert.Equal(t, 2, *page.Meta.NextPage)

	_, body = get(t, s, "/api/v1/releases?per_page=3&page=2")
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page.Releases, 1)
	assert.False(t, page.Meta.HasMore)
	assert.Nil(t, page.Meta.NextPage)
}

func TestReleasesPerPageClamp(t *testing.T) {
	s, _ := newTestServer(t)

	for target, want := range map[string]int{
		"/api/v1/releases":              20,
		"/api/v1/releases?per_page=500": 100,
		"/api/v1/releases?per_page=0":   1,
	} {
		_, body := get(t, s, target)
		var page handlers.ReleasesResponse
		require.NoError(t, json.Unmarshal(body, &page))
		assert.Equal(t, want, page.Meta.PerPage, target)
		assert.NotNil(t, page.Releases, "empty list renders as []")
	}
}

func TestReleasesFilters(t *testing.T) {
	s, db := newTestServer(t)
	hbo, netflix := seed(t, db)

	tests := []struct {
		query string
		total int64
	}{
		{"country=us", 3},
		{"country=GB", 0},
		{fmt.Sprintf("network=%d", hbo.ID), 3},
		{fmt.Sprintf("web_channel=%d", netflix.ID), 1},
		{"start_date=2025-06-20&end_date=2025-06-24", 2},
		{"q=wire", 3},
		{"q=STRANGER", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, body := get(t, s, "/api/v1/releases?"+tt.query)
			require.Equal(t, http.StatusOK, code)
			var page handlers.ReleasesResponse
			require.NoError(t, json.Unmarshal(body, &page))
			assert.Equal(t, tt.total, page.Meta.TotalCount)
		})
	}
}

func TestReleasesBadParams(t *testing.T) {
	s, _ := newTestServer(t)
	for _, q := range []string{"start_date=17-06-2025", "network=hbo"} {
		code, body := get(t, s, "/api/v1/releases?"+q)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.Contains(t, string(body), "error")
	}
}

func TestCatalog(t *testing.T) {
	s, db := newTestServer(t)
	seed(t, db)

	_, body := get(t, s, "/api/v1/countries")
	assert.JSONEq(t, `[{"id":1,"name":"United States","shortcode":"US"}]`, string(body))

	_, body = get(t, s, "/api/v1/networks?country=us")
	assert.Contains(t, string(body), `"HBO"`)
	_, body = get(t, s, "/api/v1/networks?q=nbc")
	assert.JSONEq(t, `[]`, string(body))

	_, body = get(t, s, "/api/v1/web_channels?q=flix")
	assert.Contains(t, string(body), `"Netflix"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	code, body := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "releasarr_enrichment_queue_depth")
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	code, _ := get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, code)
}
