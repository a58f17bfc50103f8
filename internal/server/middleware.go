package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/shared"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += n
	return n, err
}

// Flush lets streamed proxy responses through.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs one line per request with its status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"request_id", r.Header.Get(auth.RequestIDHeader),
			)
		})
	}
}

// RequestID assigns an X-Request-ID to requests that arrive without one and echoes it back.
// The pipeline keeps the same ID on the forwarded request and on its retry.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(auth.RequestIDHeader)
			if id == "" {
				id = shared.GenerateID()
				r.Header.Set(auth.RequestIDHeader, id)
			}
			w.Header().Set(auth.RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// SessionGate rejects requests while the store holds neither credential.
//
// Rejected requests get 401 {"message":"NO_ACCESS_TOKEN"} and a Location header naming
// entryPoint. Paths in open always pass.
func SessionGate(store auth.CredentialStore, entryPoint string, open ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(open, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := store.Get(r.Context())
			if err != nil {
				writeMessage(w, http.StatusServiceUnavailable, "CREDENTIAL_STORE_UNAVAILABLE")
				return
			}
			if creds.Empty() {
				w.Header().Set("Location", entryPoint)
				writeMessage(w, http.StatusUnauthorized, "NO_ACCESS_TOKEN")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
