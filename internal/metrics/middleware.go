package metrics

import (
	"net/http"
	"time"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware records request counts and latencies. endpoint maps a request
// to a low-cardinality label; nil uses the raw path.
func Middleware(rec Recorder, endpoint func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		label := r.URL.Path
		if endpoint != nil {
			label = endpoint(r)
		}
		rec.IncRequestsTotal(label, sw.status)
		rec.ObserveRequestDuration(label, time.Since(start))
	})
}
