package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxNameLen        = 50
	maxMessageLen     = 500
	minRating         = 1
	maxRating         = 5
	listDefaultLimit  = 50
	listMaxLimit      = 200
	maxTranslationLen = 2000
)

// TestimonialInput is the raw submission. Fields are untyped so a wrong JSON
// type is reported as the matching validation error instead of a decode failure.
type TestimonialInput struct {
	Name    any `json:"name"`
	Rating  any `json:"rating"`
	Message any `json:"message"`
}

// Validate checks the fields in order name, rating, message and returns the
// trimmed values
func (in TestimonialInput) Validate() (name string, rating int, message string, err error) {
	name, ok := in.Name.(string)
	if !ok || strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", 0, "", invalid("invalid_name", fmt.Sprintf("Name is required (max %d characters)", maxNameLen))
	}
	r, ok := in.Rating.(float64)
	if !ok || r != math.Trunc(r) || r < minRating || r > maxRating {
		return "", 0, "", invalid("invalid_rating", fmt.Sprintf("Rating must be a whole number from %d to %d", minRating, maxRating))
	}
	message, ok = in.Message.(string)
	if !ok || strings.TrimSpace(message) == "" || utf8.RuneCountInString(message) > maxMessageLen {
		return "", 0, "", invalid("invalid_message", fmt.Sprintf("Message is required (max %d characters)", maxMessageLen))
	}
	return strings.TrimSpace(name), int(r), strings.TrimSpace(message), nil
}

// Testimonials accepts and lists visitor reviews
type Testimonials struct {
	db        *DB
	limiter   Limiter
	analytics *Analytics
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewTestimonials wires the testimonial service
func NewTestimonials(db *DB, limiter Limiter, analytics *Analytics, log *zap.Logger) *Testimonials {
	return &Testimonials{
		db:        db,
		limiter:   limiter,
		analytics: analytics,
		log:       log.Named("testimonials"),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Submit rate-limits by ip first, then validates and stores. A denied
// decision comes back with a zero Testimonial and nil error.
func (s *Testimonials) Submit(ctx context.Context, ip string, in TestimonialInput) (Testimonial, Decision, error) {
	d, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		return Testimonial{}, Decision{}, fmt.Errorf("rate limit: %w", err)
	}
	if !d.Allowed {
		return Testimonial{}, d, nil
	}
	t, err := s.store(ctx, ip, in)
	return t, d, err
}

// handleSubmit serves POST /api/testimonials
func (s *Testimonials) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)
	s.log.Debug("submission", zap.String("ip", ip))

	// the body is only read once the limiter has let the request through
	d, err := s.limiter.Allow(r.Context(), ip)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !d.Allowed {
		s.log.Info("rate limited", zap.String("ip", ip), zap.Int("retry_after", d.RetryAfter))
		s.analytics.Track(EvtRateLimited, ip, map[string]any{"endpoint": "testimonial"})
		writeRateLimited(w, d, fmt.Sprintf("Too many requests. Try again in %d seconds.", d.RetryAfter))
		return
	}

	var in TestimonialInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	t, err := s.store(r.Context(), ip, in)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Kind, "message": verr.Message})
	case err != nil:
		s.fail(w, err)
	default:
		s.log.Info("testimonial created", zap.String("id", t.ID))
		s.analytics.Track(EvtTestimonialSubmitted, ip, map[string]any{"rating": t.Rating})
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": t})
	}
}

// store validates and inserts without touching the limiter
func (s *Testimonials) store(ctx context.Context, ip string, in TestimonialInput) (Testimonial, error) {
	name, rating, message, err := in.Validate()
	if err != nil {
		return Testimonial{}, err
	}
	t := Testimonial{ID: s.newID(), Name: name, Rating: rating, Message: message, CreatedAt: s.now().UTC()}
	if err := s.db.InsertTestimonial(ctx, t, ip); err != nil {
		return Testimonial{}, err
	}
	return t, nil
}

func (s *Testimonials) fail(w http.ResponseWriter, err error) {
	s.log.Error("submit testimonial", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error", "message": "Failed to save testimonial"})
}

// handleList serves GET /api/testimonials?limit=N
func (s *Testimonials) handleList(w http.ResponseWriter, r *http.Request) {
	limit := listDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_limit"})
			return
		}
		limit = min(n, listMaxLimit)
	}
	rows, err := s.db.ListTestimonials(r.Context(), limit)
	if err != nil {
		s.log.Error("list testimonials", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

type translationRequest struct {
	Lang string `json:"lang"`
	Text string `json:"text"`
}

// handleTranslate serves PUT /api/testimonials/{id}/translation (admin)
func (s *Testimonials) handleTranslate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req translationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	if req.Lang != "en" && req.Lang != "jp" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_lang"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > maxTranslationLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_text"})
		return
	}
	if err := s.db.SetTranslation(r.Context(), id, req.Lang, text); err != nil {
		s.writeRowError(w, "translate", err)
		return
	}
	t, err := s.db.GetTestimonial(r.Context(), id)
	if err != nil {
		s.writeRowError(w, "translate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": t})
}

// handleDelete serves DELETE /api/testimonials/{id} (admin)
func (s *Testimonials) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTestimonial(r.Context(), r.PathValue("id")); err != nil {
		s.writeRowError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Testimonials) writeRowError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	s.log.Error(op+" testimonial", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
}
