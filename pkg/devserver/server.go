// Package devserver is an in-memory backend that speaks the ShopSphere admin
// API closely enough to develop and test shopctl without a real
// marketplace. It keeps no state across restarts and enforces none of the
// real business rules beyond simple state checks.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// maxRequestBodyBytes limits request body size to 1 MiB.
	maxRequestBodyBytes = 1 << 20

	// DefaultAdminEmail and DefaultAdminPassword are accepted by /user_login/
	// unless Options.Admins says otherwise.
	DefaultAdminEmail    = "admin@shopsphere.test"
	DefaultAdminPassword = "admin"
)

// Options configure the server.
type Options struct {
	// Admins maps e-mail to password.
	Admins map[string]string
	// Empty skips the seed data.
	Empty  bool
	Logger *slog.Logger
}

// Server serves the admin API from a Store.
type Server struct {
	store  *Store
	admins map[string]string
	logger *slog.Logger
	router *mux.Router

	mu       sync.RWMutex
	sessions map[string]string // access token -> admin e-mail
}

// New creates a server, seeded unless opts.Empty is set.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if len(opts.Admins) == 0 {
		opts.Admins = map[string]string{DefaultAdminEmail: DefaultAdminPassword}
	}
	s := &Server{
		store:    NewStore(),
		admins:   opts.Admins,
		logger:   opts.Logger,
		sessions: make(map[string]string),
	}
	if !opts.Empty {
		Seed(s.store)
	}
	s.registerRoutes()
	return s
}

// Store exposes the backing data, for tests.
func (s *Server) Store() *Store { return s.store }

// Handler returns the HTTP handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// IssueToken creates a session for email without a login round-trip.
func (s *Server) IssueToken(email string) string {
	token := "dev-" + uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = email
	s.mu.Unlock()
	return token
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware(s.logger), requestIDMiddleware, loggingMiddleware(s.logger), requestBodyLimitMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/user_login/", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/wallet-balance/", s.authMiddleware(http.HandlerFunc(s.handleWallet))).Methods(http.MethodGet)

	admin := r.PathPrefix("/superAdmin/api").Subrouter()
	admin.Use(s.authMiddleware)

	admin.HandleFunc("/dashboard/", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/reports/", s.handleReports).Methods(http.MethodGet)

	admin.HandleFunc("/users/", s.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/", s.handleGet(colUsers)).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/toggle-block/", s.handleToggleBlockUser).Methods(http.MethodPost)

	admin.HandleFunc("/vendors/", s.handleListVendors).Methods(http.MethodGet)
	admin.HandleFunc("/vendors/{id}/", s.handleGet(colVendors)).Methods(http.MethodGet)
	admin.HandleFunc("/vendors/{id}/block/", s.handleSetBlocked(colVendors, true)).Methods(http.MethodPost)
	admin.HandleFunc("/vendors/{id}/unblock/", s.handleSetBlocked(colVendors, false)).Methods(http.MethodPost)

	admin.HandleFunc("/vendor-requests/", s.handleListRequests(colVendorRequests)).Methods(http.MethodGet)
	admin.HandleFunc("/vendor-requests/{id}/", s.handleGet(colVendorRequests)).Methods(http.MethodGet)
	admin.HandleFunc("/vendor-requests/{id}/approve/", s.handleDecide(colVendorRequests, "APPROVED")).Methods(http.MethodPost)
	admin.HandleFunc("/vendor-requests/{id}/reject/", s.handleDecide(colVendorRequests, "REJECTED")).Methods(http.MethodPost)

	admin.HandleFunc("/delivery-agents/", s.handleListAgents).Methods(http.MethodGet)
	admin.HandleFunc("/delivery-agents/{id}/", s.handleGet(colDeliveryAgents)).Methods(http.MethodGet)
	admin.HandleFunc("/delivery-agents/{id}/block/", s.handleSetBlocked(colDeliveryAgents, true)).Methods(http.MethodPost)
	admin.HandleFunc("/delivery-agents/{id}/unblock/", s.handleSetBlocked(colDeliveryAgents, false)).Methods(http.MethodPost)

	admin.HandleFunc("/delivery-requests/", s.handleListRequests(colDeliveryRequests)).Methods(http.MethodGet)
	admin.HandleFunc("/delivery-requests/{id}/", s.handleGet(colDeliveryRequests)).Methods(http.MethodGet)
	admin.HandleFunc("/delivery-requests/{id}/approve/", s.handleDecide(colDeliveryRequests, "APPROVED")).Methods(http.MethodPost)
	admin.HandleFunc("/delivery-requests/{id}/reject/", s.handleDecide(colDeliveryRequests, "REJECTED")).Methods(http.MethodPost)

	admin.HandleFunc("/products/", s.handleListProducts).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}/", s.handleGet(colProducts)).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}/toggle-status/", s.handleToggleProduct).Methods(http.MethodPost)

	admin.HandleFunc("/orders/", s.handleListOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/", s.handleGet(colOrders)).Methods(http.MethodGet)
	admin.HandleFunc("/settle-payment/{id}/", s.handleSettle).Methods(http.MethodPost)

	admin.HandleFunc("/commission-settings/", s.handleGetCommission).Methods(http.MethodGet)
	admin.HandleFunc("/commission-settings/global/", s.handleSetGlobalRate).Methods(http.MethodPatch)
	admin.HandleFunc("/commission-settings/categories/", s.handleCreateCategory).Methods(http.MethodPost)
	admin.HandleFunc("/commission-settings/categories/{id}/", s.handleUpdateCategory).Methods(http.MethodPatch)
	admin.HandleFunc("/commission-settings/categories/{id}/", s.handleDeleteCategory).Methods(http.MethodDelete)

	s.router = r
}

// authMiddleware requires a bearer token issued by /user_login/.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		s.mu.RLock()
		_, ok := s.sessions[token]
		s.mu.RUnlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestBodyLimitMiddleware caps request bodies at maxRequestBodyBytes.
func requestBodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", w.Header().Get("X-Request-ID")),
			)
		})
	}
}

// recoveryMiddleware turns handler panics into 500s.
func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// statusError is a handler failure with its HTTP status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

var errNotFound = &statusError{status: http.StatusNotFound, msg: "Not found."}

func errConflict(msg string) error   { return &statusError{status: http.StatusConflict, msg: msg} }
func errBadRequest(msg string) error { return &statusError{status: http.StatusBadRequest, msg: msg} }

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeFailure maps a handler error onto a response.
func writeFailure(w http.ResponseWriter, err error) {
	if se, ok := err.(*statusError); ok {
		writeError(w, se.status, se.msg)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeBody reads an optional JSON object body.
func decodeBody(r *http.Request) (map[string]any, error) {
	body := map[string]any{}
	if r.Body == nil || r.ContentLength == 0 {
		return body, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, errBadRequest("invalid JSON body")
	}
	return body, nil
}
