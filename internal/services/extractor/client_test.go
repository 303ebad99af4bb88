package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answer(payload string) string {
	b, _ := json.Marshal(map[string]string{"answer": "```json\n" + payload + "\n```"})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := metrics.New()
	c, err := NewClient(&config.Config{
		ExtractorURL:     srv.URL + "/llm",
		UpstreamBaseURL:  "https://www.tvmaze.com",
		ExtractorTimeout: 5 * time.Second,
	}, m, zerolog.Nop())
	require.NoError(t, err)
	return c, m
}

func TestExtractBuildsRequest(t *testing.T) {
	var gotTarget, gotInstruction, gotContentType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTarget = strings.TrimPrefix(r.URL.Path, "/llm/")
		gotInstruction = r.URL.Query().Get("q")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(answer(`[{"date":"2025-06-17"}]`)))
	})

	items := c.Extract(context.Background(), "https://www.tvmaze.com/countdown?page=1", "list every release & more")
	require.Len(t, items, 1)
	assert.Equal(t, "https://www.tvmaze.com/countdown?page=1", gotTarget)
	assert.Equal(t, "list every release & more", gotInstruction)
	assert.Equal(t, "application/json", gotContentType)
}

func TestExtractFailuresAreEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, answer(`[{"a":1}]`)},
		{"not found", http.StatusNotFound, ""},
		{"body not json", http.StatusOK, "<html>"},
		{"no answer field", http.StatusOK, `{"result":"x"}`},
		{"answer not a string", http.StatusOK, `{"answer":42}`},
		{"fenced garbage", http.StatusOK, answer(`not json`)},
		{"object instead of array", http.StatusOK, answer(`{"date":"2025-06-17"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			assert.Empty(t, c.Extract(context.Background(), "https://example.test", "x"))
		})
	}
}

func TestExtractTransportErrorIsEmpty(t *testing.T) {
	m := metrics.New()
	c, err := NewClient(&config.Config{
		ExtractorURL:     "http://127.0.0.1:1/llm",
		UpstreamBaseURL:  "https://www.tvmaze.com",
		ExtractorTimeout: time.Second,
	}, m, zerolog.Nop())
	require.NoError(t, err)

	assert.Nil(t, c.ExtractReleases(context.Background(), 1))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractorRequests.WithLabelValues("listing", "transport_error")))
}

func TestExtractOne(t *testing.T) {
	body := answer(`{"title":"The Wire"}`)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	raw := c.ExtractOne(context.Background(), "https://example.test", "x")
	assert.JSONEq(t, `{"title":"The Wire"}`, string(raw))

	body = answer(`{}`)
	assert.Nil(t, c.ExtractOne(context.Background(), "https://example.test", "x"))

	body = answer(`[1,2]`)
	assert.Nil(t, c.ExtractOne(context.Background(), "https://example.test", "x"))
}

func TestExtractReleases(t *testing.T) {
	var gotTarget string
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTarget = strings.TrimPrefix(r.URL.Path, "/llm/")
		w.Write([]byte(answer(`[
			{"date":"2025-06-17","time":"20:00","show_id":"s1","episode_id":123,"network_id":"n1","network_name":"HBO"},
			{"date":"2025-06-18","time":"21:00","show_id":7,"episode_id":"e2","web_channel_id":"w1"},
			{"date":["broken"]}
		]`)))
	})

	records := c.ExtractReleases(context.Background(), 2)
	require.Len(t, records, 3)
	assert.Equal(t, "https://www.tvmaze.com/countdown?page=2", gotTarget)

	assert.Equal(t, ExternalID("s1"), records[0].ShowID)
	assert.Equal(t, ExternalID("123"), records[0].EpisodeID)
	assert.Equal(t, "HBO", records[0].NetworkName)
	assert.NoError(t, records[0].Err)

	assert.Equal(t, ExternalID("7"), records[1].ShowID)
	assert.Equal(t, ExternalID("w1"), records[1].WebChannelID)

	assert.Error(t, records[2].Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractorRequests.WithLabelValues("listing", "ok")))
}

func TestExtractDetails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		target := strings.TrimPrefix(r.URL.Path, "/llm/")
		switch {
		case strings.HasSuffix(target, "/shows/1"):
			w.Write([]byte(answer(`{"title":"The Wire","genres":"Drama, Crime","vote":"8.5"}`)))
		case strings.HasSuffix(target, "/episodes/2"):
			w.Write([]byte(answer(`{"season":1,"episode":"3","airdate":"2002-06-16","runtime":60}`)))
		case strings.HasSuffix(target, "/networks/3"):
			w.Write([]byte(answer(`{"name":"HBO","country_code":"us"}`)))
		case strings.HasSuffix(target, "/webchannels/4"):
			w.Write([]byte(answer(`{"name":"Netflix"}`)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	show := c.ExtractShow(ctx, "1")
	require.NotNil(t, show)
	assert.Equal(t, "The Wire", show.Title)
	assert.Equal(t, Genres{"Drama", "Crime"}, show.Genres)
	require.NotNil(t, show.Vote)
	assert.Equal(t, 8.5, float64(*show.Vote))

	ep := c.ExtractEpisode(ctx, "2")
	require.NotNil(t, ep)
	assert.Equal(t, 1, ep.Season.Int())
	assert.Equal(t, 3, ep.Episode.Int())
	require.NotNil(t, ep.Runtime)
	assert.Equal(t, 60, ep.Runtime.Int())

	network := c.ExtractNetwork(ctx, "3")
	require.NotNil(t, network)
	assert.Equal(t, "us", network.CountryCode)

	wc := c.ExtractWebChannel(ctx, "4")
	require.NotNil(t, wc)
	assert.Equal(t, "Netflix", wc.Name)

	assert.Nil(t, c.ExtractShow(ctx, "missing"))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[1]`, stripCodeFence("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("```JSON [1] ```  "))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("[1]"))
}

func TestExternalIDUnmarshal(t *testing.T) {
	var ids struct {
		A ExternalID `json:"a"`
		B ExternalID `json:"b"`
		C ExternalID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":" 12 ","b":34,"c":null}`), &ids))
	assert.Equal(t, ExternalID("12"), ids.A)
	assert.Equal(t, ExternalID("34"), ids.B)
	assert.Equal(t, ExternalID(""), ids.C)
}
