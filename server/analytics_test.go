package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestAnalyticsStopFlushes(t *testing.T) {
	db := newTestDB(t)
	a := NewAnalytics(db, zaptest.NewLogger(t))

	a.Track(EvtTestimonialSubmitted, "1.1.1.1", map[string]any{"rating": 5})
	a.Track(EvtTestimonialSubmitted, "1.1.1.2", nil)
	a.Track(EvtRateLimited, "", nil)
	a.Stop()
	a.Stop()

	// tracking after stop is a no-op
	a.Track(EvtContactSent, "", nil)

	ctx := context.Background()
	counts, err := a.EventCounts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{EvtTestimonialSubmitted: 2, EvtRateLimited: 1}, counts)

	daily, err := a.DailyCounts(ctx, EvtTestimonialSubmitted, 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), daily[0].Day)
	assert.Equal(t, 2, daily[0].Count)

	var data string
	require.NoError(t, db.conn.QueryRow(
		"SELECT data FROM analytics_events WHERE client_ip = '1.1.1.1'").Scan(&data))
	assert.JSONEq(t, `{"rating":5}`, data)
}

func TestAnalyticsViewersAndSnapshot(t *testing.T) {
	db := newTestDB(t)
	a := NewAnalytics(db, zaptest.NewLogger(t))

	a.ViewerJoined("1.1.1.1", "menu")
	a.ViewerJoined("1.1.1.2", "explore")
	a.ViewerLeft("1.1.1.1", 120)
	assert.Equal(t, 1, a.Viewers())

	a.Stop()
	s, err := a.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Days)
	assert.Equal(t, 1, s.Viewers)
	assert.Equal(t, 2, s.Events[EvtViewerConnected])
	assert.Equal(t, 1, s.Events[EvtViewerLeft])
	assert.Empty(t, s.Submissions)
}

func TestAnalyticsWithoutDB(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	a := NewAnalytics(nil, zaptest.NewLogger(t))
	a.Track(EvtPanelOpened, "ip", map[string]any{"panel": "games"})
	a.ViewerJoined("ip", "menu")

	s, err := a.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, s.Events)
	assert.Equal(t, 1, s.Viewers)
	a.Stop()
}
