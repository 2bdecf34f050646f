package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	corsAllowHeaders = "authorization, x-client-info, apikey, content-type, x-supabase-client-platform, x-supabase-client-platform-version, x-supabase-client-runtime, x-supabase-client-runtime-version"
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	maxBodyBytes     = 64 << 10
	defaultStatsDays = 7
	defaultViewportW = 1280
	defaultViewportH = 720
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// ClientIP resolves the caller the way the edge proxy reports it: first
// X-Forwarded-For entry, then X-Real-IP, then "unknown"
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// remoteIP is the socket peer, used for connection limits that must not be
// spoofable by headers
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRateLimited(w http.ResponseWriter, d Decision, msg string) {
	w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":      "rate_limited",
		"message":    msg,
		"retryAfter": d.RetryAfter,
	})
}

// decodeJSON reads one JSON object from a size-capped body
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// withCORS answers preflight requests and stamps CORS headers on everything
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "ok")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server holds the collaborators the HTTP routes need
type Server struct {
	hub          *Hub
	testimonials *Testimonials
	contact      *Contact
	auth         *Auth
	analytics    *Analytics
	sounds       *SoundBank
	clientDir    string
	log          *zap.Logger

	// streams outlive their upgrade request; this ends them on shutdown
	streamCtx context.Context
}

// Handler builds the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	if s.clientDir != "" {
		fs := http.FileServer(http.Dir(s.clientDir))
		mux.Handle("GET /", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: extensionless paths are client routes
			if path.Ext(r.URL.Path) == "" {
				http.ServeFile(w, r, filepath.Join(s.clientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "viewers": s.hub.ClientCount()})
	})

	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("POST /api/testimonials", s.testimonials.handleSubmit)
	mux.HandleFunc("POST /functions/v1/submit-testimonial", s.testimonials.handleSubmit)
	mux.HandleFunc("GET /api/testimonials", s.testimonials.handleList)
	mux.HandleFunc("PUT /api/testimonials/{id}/translation", s.auth.RequireAdmin(s.testimonials.handleTranslate))
	mux.HandleFunc("DELETE /api/testimonials/{id}", s.auth.RequireAdmin(s.testimonials.handleDelete))

	mux.HandleFunc("POST /api/contact", s.contact.handleSend)
	mux.HandleFunc("POST /functions/v1/send-contact-email", s.contact.handleSend)

	mux.HandleFunc("POST /api/auth/login", s.auth.handleLogin)
	mux.HandleFunc("GET /api/stats", s.auth.RequireAdmin(s.handleStats))

	mux.HandleFunc("GET /api/world", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, World())
	})
	mux.HandleFunc("GET /api/cutscene", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lines": Script()})
	})
	mux.HandleFunc("GET /api/content/{type}", s.handleContent)
	mux.HandleFunc("GET /api/social/{id}/qr.png", s.handleQR)
	mux.HandleFunc("GET /api/sfx/{file}", s.handleSFX)

	return withCORS(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := remoteIP(r)
	if !s.hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = ModeMenu
	}
	if mode != ModeMenu && mode != ModeExplore {
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}
	vp := Viewport{W: queryFloat(q, "w", defaultViewportW), H: queryFloat(q, "h", defaultViewportH)}
	if !vp.Valid() || vp.W > 8192 || vp.H > 8192 {
		http.Error(w, "invalid viewport", http.StatusBadRequest)
		return
	}
	potato := q.Get("potato") == "1" || q.Get("potato") == "true"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade error", zap.Error(err))
		return
	}

	s.hub.TrackConnect(ip)
	client := NewClient(s.hub, conn, ip, mode, vp, potato)
	if !s.hub.Register(client) {
		s.hub.TrackDisconnect(ip)
		conn.Close()
		return
	}
	ctx := s.streamCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go client.Serve(ctx)
}

func queryFloat(q url.Values, key string, def float64) float64 {
	v := q.Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return -1
	}
	return f
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	ct, err := ParseContentType(r.PathValue("type"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_content"})
		return
	}
	writeJSON(w, http.StatusOK, PanelFor(ct))
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_size"})
			return
		}
		size = n
	}
	png, err := SocialQR(r.PathValue("id"), size)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	if err != nil {
		s.log.Error("qr code", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(png)
}

func (s *Server) handleSFX(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".wav")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	cue, err := ParseCue(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown_cue"})
		return
	}
	data, err := s.sounds.WAV(cue)
	if err != nil {
		// audio failures never break the page; the client just stays silent
		s.log.Warn("sfx unavailable", zap.Stringer("cue", cue), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audio_unavailable"})
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_days"})
			return
		}
		days = n
	}
	st, err := s.analytics.Snapshot(r.Context(), days)
	if err != nil {
		s.log.Error("stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
