package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestAnalytics(t *testing.T, db *DB) *Analytics {
	t.Helper()
	a := NewAnalytics(db, zaptest.NewLogger(t))
	t.Cleanup(a.Stop)
	return a
}

func newTestTestimonials(t *testing.T, p LimitPolicy) (*Testimonials, *DB) {
	t.Helper()
	db := newTestDB(t)
	s := NewTestimonials(db, NewMemoryLimiter(p), newTestAnalytics(t, db), zaptest.NewLogger(t))
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("t-%d", n)
	}
	return s, db
}

func postJSON(h http.HandlerFunc, path, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestTestimonialValidate(t *testing.T) {
	tests := []struct {
		name string
		in   TestimonialInput
		kind string
	}{
		{"valid", TestimonialInput{Name: "Ana", Rating: 5.0, Message: "Great"}, ""},
		{"missing name", TestimonialInput{Rating: 5.0, Message: "Great"}, "invalid_name"},
		{"blank name", TestimonialInput{Name: "   ", Rating: 5.0, Message: "Great"}, "invalid_name"},
		{"long name", TestimonialInput{Name: strings.Repeat("a", 51), Rating: 5.0, Message: "Great"}, "invalid_name"},
		{"50 runes of multibyte name", TestimonialInput{Name: strings.Repeat("ä", 50), Rating: 1.0, Message: "Great"}, ""},
		{"name wins over rating", TestimonialInput{Name: "", Rating: 9.0, Message: ""}, "invalid_name"},
		{"rating too high", TestimonialInput{Name: "Ana", Rating: 6.0, Message: "Great"}, "invalid_rating"},
		{"rating zero", TestimonialInput{Name: "Ana", Rating: 0.0, Message: "Great"}, "invalid_rating"},
		{"fractional rating", TestimonialInput{Name: "Ana", Rating: 2.5, Message: "Great"}, "invalid_rating"},
		{"string rating", TestimonialInput{Name: "Ana", Rating: "5", Message: "Great"}, "invalid_rating"},
		{"missing message", TestimonialInput{Name: "Ana", Rating: 3.0}, "invalid_message"},
		{"long message", TestimonialInput{Name: "Ana", Rating: 3.0, Message: strings.Repeat("m", 501)}, "invalid_message"},
		{"numeric message", TestimonialInput{Name: "Ana", Rating: 3.0, Message: 42.0}, "invalid_message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := tt.in.Validate()
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.kind, verr.Kind)
		})
	}
}

func TestTestimonialValidateTrims(t *testing.T) {
	name, rating, msg, err := TestimonialInput{Name: "  Ana ", Rating: 4.0, Message: "\tnice\n"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)
	assert.Equal(t, 4, rating)
	assert.Equal(t, "nice", msg)
}

func TestSubmitRatingOutOfRange(t *testing.T) {
	s, _ := newTestTestimonials(t, LimitPolicy{Window: 5 * time.Minute, Max: 1})

	rec := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1", `{"name":"Ana","rating":6,"message":"Great work"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_rating", body["error"])
	assert.NotEmpty(t, body["message"])
}

func TestSubmitSecondRequestIsRateLimited(t *testing.T) {
	s, _ := newTestTestimonials(t, LimitPolicy{Window: 5 * time.Minute, Max: 1})
	payload := `{"name":"Ana","rating":5,"message":"Great work"}`

	first := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1", payload)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	created := decodeBody(t, first)
	assert.Equal(t, true, created["success"])
	data := created["data"].(map[string]any)
	assert.Equal(t, "t-1", data["id"])
	assert.Equal(t, 5.0, data["rating"])
	assert.Nil(t, data["message_en"])

	second := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1, 172.16.0.1", payload)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	body := decodeBody(t, second)
	assert.Equal(t, "rate_limited", body["error"])
	retry, ok := body["retryAfter"].(float64)
	require.True(t, ok)
	assert.Positive(t, retry)
	assert.LessOrEqual(t, retry, 300.0)
	assert.Equal(t, fmt.Sprint(int(retry)), second.Header().Get("Retry-After"))

	other := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.2", payload)
	assert.Equal(t, http.StatusCreated, other.Code)
}

func TestSubmitRateLimitCountsInvalidAttempts(t *testing.T) {
	s, _ := newTestTestimonials(t, LimitPolicy{Window: 5 * time.Minute, Max: 1})

	rec := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1", `{"name":"","rating":5,"message":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1", `{"name":"Ana","rating":5,"message":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSubmitMalformedBody(t *testing.T) {
	s, _ := newTestTestimonials(t, LimitPolicy{Window: 5 * time.Minute, Max: 1})

	rec := postJSON(s.handleSubmit, "/api/testimonials", "10.0.0.1", `{"name":`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", decodeBody(t, rec)["error"])
}

func TestSubmitDirect(t *testing.T) {
	s, db := newTestTestimonials(t, LimitPolicy{Window: time.Minute, Max: 2})
	ctx := context.Background()

	got, d, err := s.Submit(ctx, "ip", TestimonialInput{Name: "Bo", Rating: 3.0, Message: "ok"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	stored, err := db.GetTestimonial(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bo", stored.Name)
	assert.Equal(t, 3, stored.Rating)

	_, _, err = s.Submit(ctx, "ip", TestimonialInput{Name: "Bo", Rating: 7.0, Message: "ok"})
	assert.Error(t, err)

	got, d, err = s.Submit(ctx, "ip", TestimonialInput{Name: "Bo", Rating: 3.0, Message: "ok"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Empty(t, got.ID)
}

func TestListTestimonialsHandler(t *testing.T) {
	s, _ := newTestTestimonials(t, LimitPolicy{Window: time.Minute, Max: 10})
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return at }
		_, _, err := s.Submit(context.Background(), "ip", TestimonialInput{Name: fmt.Sprintf("n%d", i), Rating: 4.0, Message: "m"})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	s.handleList(rec, httptest.NewRequest(http.MethodGet, "/api/testimonials?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Testimonial `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "n2", body.Data[0].Name, "newest first")
	assert.Equal(t, "n1", body.Data[1].Name)

	rec = httptest.NewRecorder()
	s.handleList(rec, httptest.NewRequest(http.MethodGet, "/api/testimonials?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateAndDeleteHandlers(t *testing.T) {
	s, db := newTestTestimonials(t, LimitPolicy{Window: time.Minute, Max: 10})
	ctx := context.Background()
	got, _, err := s.Submit(ctx, "ip", TestimonialInput{Name: "Ana", Rating: 5.0, Message: "Mantap"})
	require.NoError(t, err)

	put := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/testimonials/"+id+"/translation", strings.NewReader(body))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		s.handleTranslate(rec, req)
		return rec
	}

	rec := put(got.ID, `{"lang":"en","text":"Great"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := db.GetTestimonial(ctx, got.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.MessageEN)
	assert.Equal(t, "Great", *stored.MessageEN)
	assert.Nil(t, stored.MessageJP)

	assert.Equal(t, http.StatusBadRequest, put(got.ID, `{"lang":"fr","text":"Super"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(got.ID, `{"lang":"jp","text":"  "}`).Code)
	assert.Equal(t, http.StatusNotFound, put("missing", `{"lang":"jp","text":"すごい"}`).Code)

	del := func(id string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/testimonials/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		s.handleDelete(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, del(got.ID))
	assert.Equal(t, http.StatusNotFound, del(got.ID))
}
