package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event types for analytics tracking
const (
	EvtTestimonialSubmitted = "testimonial_submitted"
	EvtRateLimited          = "rate_limited"
	EvtContactSent          = "contact_sent"
	EvtContactFailed        = "contact_failed"
	EvtViewerConnected      = "viewer_connected"
	EvtViewerLeft           = "viewer_left"
	EvtPanelOpened          = "panel_opened"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	ClientIP  string
	Data      map[string]any // optional, stored as JSON
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	log    *zap.Logger
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	viewers atomic.Int64
	dropped atomic.Int64
}

// NewAnalytics creates and starts the analytics background writer. A nil
// db keeps live counters but persists nothing.
func NewAnalytics(db *DB, log *zap.Logger) *Analytics {
	a := &Analytics{
		db:     db,
		log:    log.Named("analytics"),
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, clientIP string, data map[string]any) {
	select {
	case <-a.stop:
		return
	default:
	}
	select {
	case a.events <- AnalyticsEvent{Type: evtType, ClientIP: clientIP, Data: data, Timestamp: time.Now().UTC()}:
	default:
		// full; never block a request on analytics
		a.dropped.Add(1)
	}
}

// ViewerJoined and ViewerLeft maintain the live stream count
func (a *Analytics) ViewerJoined(ip, mode string) {
	a.viewers.Add(1)
	a.Track(EvtViewerConnected, ip, map[string]any{"mode": mode})
}

func (a *Analytics) ViewerLeft(ip string, frames uint64) {
	a.viewers.Add(-1)
	a.Track(EvtViewerLeft, ip, map[string]any{"frames": frames})
}

// Viewers returns the number of open menu streams
func (a *Analytics) Viewers() int {
	return int(a.viewers.Load())
}

// Stop drains pending events and stops the writer. Safe to call twice.
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					if len(batch) > 0 {
						a.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := a.db.conn.BeginTx(ctx, nil)
	if err != nil {
		a.log.Error("begin tx", zap.Error(err))
		return
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO analytics_events (event_type, client_ip, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		a.log.Error("prepare insert", zap.Error(err))
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		ip := sql.NullString{String: evt.ClientIP, Valid: evt.ClientIP != ""}
		var data sql.NullString
		if len(evt.Data) > 0 {
			b, err := json.Marshal(evt.Data)
			if err == nil {
				data = sql.NullString{String: string(b), Valid: true}
			}
		}
		if _, err := stmt.ExecContext(ctx, evt.Type, ip, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			a.log.Warn("insert event", zap.String("type", evt.Type), zap.Error(err))
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error("commit events", zap.Error(err))
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(ctx context.Context, days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := a.db.conn.QueryContext(ctx, `
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= ?
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// DailyCounts returns per-day totals of one event type for the last N days
func (a *Analytics) DailyCounts(ctx context.Context, evtType string, days int) ([]DayCount, error) {
	result := []DayCount{}
	if a.db == nil {
		return result, nil
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := a.db.conn.QueryContext(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM analytics_events
		WHERE event_type = ? AND created_at >= ?
		GROUP BY day ORDER BY day
	`, evtType, since)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

// DayCount holds a count for a specific day
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Stats is the admin dashboard payload
type Stats struct {
	Days        int            `json:"days"`
	Events      map[string]int `json:"events"`
	Submissions []DayCount     `json:"submissions"`
	Viewers     int            `json:"viewers"`
	Dropped     int64          `json:"dropped"`
}

// Snapshot gathers Stats for the last N days
func (a *Analytics) Snapshot(ctx context.Context, days int) (Stats, error) {
	events, err := a.EventCounts(ctx, days)
	if err != nil {
		return Stats{}, err
	}
	subs, err := a.DailyCounts(ctx, EvtTestimonialSubmitted, days)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Days:        days,
		Events:      events,
		Submissions: subs,
		Viewers:     a.Viewers(),
		Dropped:     a.dropped.Load(),
	}, nil
}
