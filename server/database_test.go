package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTestimonialRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 9, 30, 0, 123, time.UTC)

	in := Testimonial{ID: "a", Name: "Ana", Rating: 5, Message: "Keren", CreatedAt: at}
	require.NoError(t, db.InsertTestimonial(ctx, in, "1.2.3.4"))

	got, err := db.GetTestimonial(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Rating, got.Rating)
	assert.Equal(t, in.Message, got.Message)
	assert.True(t, at.Equal(got.CreatedAt), "got %v", got.CreatedAt)
	assert.Nil(t, got.MessageEN)

	_, err = db.GetTestimonial(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, db.InsertTestimonial(ctx, in, ""), "duplicate id")
	bad := Testimonial{ID: "b", Name: "x", Rating: 9, Message: "m", CreatedAt: at}
	assert.Error(t, db.InsertTestimonial(ctx, bad, ""), "rating check constraint")
}

func TestListTestimonialsOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	// sub-second offsets must still sort correctly
	offsets := []time.Duration{0, 900 * time.Millisecond, 2 * time.Second, 1500 * time.Millisecond}
	for i, off := range offsets {
		tm := Testimonial{ID: string(rune('a' + i)), Name: "n", Rating: 3, Message: "m", CreatedAt: base.Add(off)}
		require.NoError(t, db.InsertTestimonial(ctx, tm, ""))
	}

	list, err := db.ListTestimonials(ctx, 10)
	require.NoError(t, err)
	var ids []string
	for _, tm := range list {
		ids = append(ids, tm.ID)
	}
	assert.Equal(t, []string{"c", "d", "b", "a"}, ids)

	list, err = db.ListTestimonials(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty, err := newTestDB(t).ListTestimonials(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSetTranslationAndDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertTestimonial(ctx, Testimonial{ID: "a", Name: "n", Rating: 4, Message: "m", CreatedAt: time.Now()}, ""))

	require.NoError(t, db.SetTranslation(ctx, "a", "en", "hello"))
	require.NoError(t, db.SetTranslation(ctx, "a", "jp", "こんにちは"))
	got, err := db.GetTestimonial(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got.MessageEN)
	require.NotNil(t, got.MessageJP)
	assert.Equal(t, "hello", *got.MessageEN)
	assert.Equal(t, "こんにちは", *got.MessageJP)

	assert.Error(t, db.SetTranslation(ctx, "a", "de", "hallo"))
	assert.ErrorIs(t, db.SetTranslation(ctx, "zzz", "en", "x"), ErrNotFound)

	require.NoError(t, db.DeleteTestimonial(ctx, "a"))
	assert.ErrorIs(t, db.DeleteTestimonial(ctx, "a"), ErrNotFound)
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	v, err := db.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, db.SetSetting(ctx, "k", "one"))
	require.NoError(t, db.SetSetting(ctx, "k", "two"))
	v, err = db.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestConcurrentWritesOnFileDB(t *testing.T) {
	db, err := OpenDB(t.TempDir()+"/nexus.db", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	// Stop flushes the tracked events in one transaction on the same file
	a := NewAnalytics(db, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Track(EvtTestimonialSubmitted, "ip", nil)
			tm := Testimonial{ID: fmt.Sprintf("t-%d", i), Name: "n", Rating: 4, Message: "m", CreatedAt: time.Now()}
			errs <- db.InsertTestimonial(ctx, tm, "ip")
		}(i)
	}
	wg.Wait()
	close(errs)
	a.Stop()

	for err := range errs {
		assert.NoError(t, err)
	}
	list, err := db.ListTestimonials(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, list, 40)

	counts, err := a.EventCounts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, counts[EvtTestimonialSubmitted])
}
