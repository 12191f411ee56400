package httpadapter

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
)

// routeOperations names the use case behind each path in access logs.
var routeOperations = map[string]string{
	"/upload":       "upload_document",
	"/status":       "get_job_status",
	"/chat":         "ask_about_brief",
	"/worker/run":   "run_worker",
	"/healthz":      "healthz",
	"/metrics":      "metrics",
	"/openapi.yaml": "openapi_document",
}

func routeOperation(path string) string {
	if op, ok := routeOperations[path]; ok {
		return op
	}
	return "unknown"
}

type requestIDContextKey struct{}

type requestLogContextKey struct{}

// requestLog collects fields that handlers learn while serving a request.
type requestLog struct {
	jobID string
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

// annotateJob attaches the job a request is about to its access log line.
func annotateJob(r *http.Request, jobID string) {
	entry, ok := r.Context().Value(requestLogContextKey{}).(*requestLog)
	if !ok || strings.TrimSpace(jobID) == "" {
		return
	}
	entry.jobID = jobID
}

// requestIDMiddleware propagates a caller supplied X-Request-Id when it is
// short printable ASCII and generates one otherwise.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDContextKey{}, requestID)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// accessLogMiddleware writes one api_request line per request with the
// route operation and, when known, the job it touched.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		entry := &requestLog{}
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r.WithContext(context.WithValue(r.Context(), requestLogContextKey{}, entry)))

		jobID := entry.jobID
		if jobID == "" {
			jobID = strings.TrimSpace(r.URL.Query().Get("jobId"))
		}
		remoteAddr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remoteAddr = host
		}

		attrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"operation", routeOperation(r.URL.Path),
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.statusCode,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", recorder.bytesWritten,
			"remote_addr", remoteAddr,
		}
		if jobID != "" {
			attrs = append(attrs, "job_id", jobID)
		}

		level := slog.LevelInfo
		switch {
		case recorder.statusCode >= 500:
			level = slog.LevelError
		case recorder.statusCode >= 400:
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "api_request", attrs...)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}
