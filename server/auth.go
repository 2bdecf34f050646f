package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 12
	jwtSecretSetting = "jwt_secret"
	jwtIssuer        = "nexus-space"
)

var (
	// ErrInvalidToken covers every reason a bearer token is rejected
	ErrInvalidToken = errors.New("invalid token")
	// ErrBadCredentials is returned for a wrong username or password
	ErrBadCredentials = errors.New("invalid username or password")
)

// Auth issues and checks admin tokens. There is exactly one admin account,
// configured by username and bcrypt hash.
type Auth struct {
	username string
	passHash []byte
	secret   []byte
	ttl      time.Duration
	limiter  Limiter
	log      *zap.Logger
	now      func() time.Time
}

// NewAuth resolves the signing secret (config, then the settings table,
// then a freshly generated one persisted for the next start)
func NewAuth(ctx context.Context, cfg AdminConfig, db *DB, limiter Limiter, log *zap.Logger) (*Auth, error) {
	secret, err := loadOrCreateSecret(ctx, cfg.JWTSecret, db)
	if err != nil {
		return nil, err
	}
	if cfg.PasswordHash == "" {
		log.Warn("no admin password hash configured; admin login disabled")
	}
	return &Auth{
		username: cfg.Username,
		passHash: []byte(cfg.PasswordHash),
		secret:   secret,
		ttl:      cfg.TokenTTL,
		limiter:  limiter,
		log:      log.Named("auth"),
		now:      time.Now,
	}, nil
}

func loadOrCreateSecret(ctx context.Context, configured string, db *DB) ([]byte, error) {
	if configured != "" {
		b, err := hex.DecodeString(configured)
		if err != nil || len(b) < 32 {
			return nil, errors.New("jwt secret must be at least 32 hex-encoded bytes")
		}
		return b, nil
	}
	if db != nil {
		h, err := db.GetSetting(ctx, jwtSecretSetting)
		if err != nil {
			return nil, err
		}
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	if db != nil {
		if err := db.SetSetting(ctx, jwtSecretSetting, hex.EncodeToString(secret)); err != nil {
			return nil, fmt.Errorf("persist jwt secret: %w", err)
		}
	}
	return secret, nil
}

// HashPassword returns a bcrypt hash suitable for the admin config
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Login checks the credentials and returns a signed token. A denied rate
// limit decision is returned as is with an empty token.
func (a *Auth) Login(ctx context.Context, username, password, ip string) (string, Decision, error) {
	d, err := a.limiter.Allow(ctx, ip)
	if err != nil {
		return "", Decision{}, err
	}
	if !d.Allowed {
		return "", d, nil
	}
	if len(a.passHash) == 0 {
		return "", d, ErrBadCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	// always run bcrypt so timing does not reveal the username
	passErr := bcrypt.CompareHashAndPassword(a.passHash, []byte(password))
	if !userOK || passErr != nil {
		a.log.Info("admin login failed", zap.String("ip", ip))
		return "", d, ErrBadCredentials
	}
	token, err := a.generateToken(username)
	if err != nil {
		return "", d, err
	}
	a.log.Info("admin login", zap.String("ip", ip))
	return token, d, nil
}

func (a *Auth) generateToken(username string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    jwtIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// ValidateToken returns the admin username carried by tokenStr
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(jwtIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != a.username {
		return "", fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// RequireAdmin rejects requests without a valid bearer token
func (a *Auth) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || tok == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if _, err := a.ValidateToken(tok); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin serves POST /api/auth/login
func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	token, d, err := a.Login(r.Context(), req.Username, req.Password, ClientIP(r))
	switch {
	case err == nil && !d.Allowed:
		writeRateLimited(w, d, "Too many login attempts, try again later.")
	case errors.Is(err, ErrBadCredentials):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_credentials"})
	case err != nil:
		a.log.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "expiresIn": int(a.ttl.Seconds())})
	}
}
