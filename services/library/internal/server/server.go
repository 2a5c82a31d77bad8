package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"settle/internal/ratelimit"
	"settle/internal/util"
	"settle/services/library/internal/app"
	"settle/services/library/internal/security"
)

const (
	serviceName  = "library"
	maxBodyBytes = 1 << 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// RedisAddr enables signup/login rate limiting when set.
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	TrustedProxyCIDRs        []string
	// CORSAllowedOrigins restricts browser origins; empty allows any.
	CORSAllowedOrigins []string
}

// Server exposes HTTP endpoints for the library backend.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	redis          *redis.Client
	signupLimiter  *ratelimit.FixedWindowLimiter
	loginLimiter   *ratelimit.FixedWindowLimiter
	alerter        *security.AuditAlerter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires an app")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		trustedProxies: trusted,
		corsOrigins:    cfg.CORSAllowedOrigins,
	}
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		if err := s.initRateLimits(addr, cfg); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

func (s *Server) initRateLimits(addr string, cfg Config) error {
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 10
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 20
	}
	s.redis = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword})
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		limiter, err := ratelimit.NewFixedWindowLimiter(s.redis, "settle:library:ratelimit:"+name, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	var err error
	if s.signupLimiter, err = newLimiter("signup", signupLimit); err != nil {
		return err
	}
	if s.loginLimiter, err = newLimiter("login", loginLimit); err != nil {
		return err
	}
	s.alerter = security.NewAuditAlerter(s.redis, "settle:library:alerts")
	return nil
}

// Close releases the rate limiter's Redis client, if any.
func (s *Server) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog(serviceName,
			util.WithSecurityHeaders(
				util.WithCORS(s.corsOrigins, s.mux))))
}

const (
	routeHealth     = "GET /healthz"
	routeSignup     = "POST /auth/signup"
	routeLogin      = "POST /auth/login"
	routeProfile    = "GET /auth/profile"
	routeListBooks  = "GET /books/list"
	routeGetBook    = "GET /books/get/{id}"
	routeCreateBook = "POST /books/new"
	routeUpdateBook = "PATCH /books/edit/{id}"
	routeDeleteBook = "DELETE /books/delete/{id}"
)

// Routes lists the "METHOD /path" patterns the server registers.
func Routes() []string {
	return []string{
		routeHealth,
		routeSignup,
		routeLogin,
		routeProfile,
		routeListBooks,
		routeGetBook,
		routeCreateBook,
		routeUpdateBook,
		routeDeleteBook,
	}
}

func (s *Server) routes() {
	s.mux.HandleFunc(routeHealth, s.handleHealth)

	// auth
	s.mux.HandleFunc(routeSignup, s.handleSignup)
	s.mux.HandleFunc(routeLogin, s.handleLogin)
	s.mux.Handle(routeProfile, s.authenticated(s.handleProfile))

	// books: reads need a token, writes need the author role
	s.mux.Handle(routeListBooks, s.authenticated(s.handleListBooks))
	s.mux.Handle(routeGetBook, s.authenticated(s.handleGetBook))
	s.mux.Handle(routeCreateBook, s.requireRole(roleAuthor, s.handleCreateBook))
	s.mux.Handle(routeUpdateBook, s.requireRole(roleAuthor, s.handleUpdateBook))
	s.mux.Handle(routeDeleteBook, s.requireRole(roleAuthor, s.handleDeleteBook))

	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ready(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < len("Bearer ") || !strings.EqualFold(authHeader[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[len("Bearer "):])
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

func (s *Server) audit(r *http.Request, event security.Event, outcome security.Outcome, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == security.OutcomeSuccess {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)

	alert, err := s.alerter.Observe(r.Context(), event, outcome, s.clientIP(r))
	if err != nil {
		logger.Warn("security alert evaluation failed", "event", event, "err", err)
		return
	}
	if alert.Triggered {
		logger.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", s.clientIP(r),
			"count", alert.Count,
			"threshold", alert.Threshold,
			"window", alert.Window.String(),
		)
	}
}

// allowRate is a no-op when rate limiting is disabled.
func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + s.clientIP(r)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	retry := int(limiter.RetryAfter().Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
