package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"
)

// ClientLimiter hands out one token bucket per status client.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	every   rate.Limit
	burst   int
}

// NewClientLimiter allows every tokens per second with the given burst.
func NewClientLimiter(every rate.Limit, burst int) *ClientLimiter {
	return &ClientLimiter{
		buckets: make(map[string]*rate.Limiter),
		every:   every,
		burst:   burst,
	}
}

// Bucket returns the limiter of client, creating it on first use.
func (cl *ClientLimiter) Bucket(client string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	b, ok := cl.buckets[client]
	if !ok {
		b = rate.NewLimiter(cl.every, cl.burst)
		cl.buckets[client] = b
	}
	return b
}

// clientHost strips the port from a RemoteAddr. RealIP leaves a bare
// address, which is returned as is.
func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// limitClients caps each client host at perMinute status requests.
func (s *Server) limitClients(perMinute int) func(http.Handler) http.Handler {
	limiter := NewClientLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	retryAfter := strconv.Itoa(60 / max(perMinute, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientHost(r.RemoteAddr)
			if limiter.Bucket(client).Allow() {
				next.ServeHTTP(w, r)
				return
			}

			s.Logger.Warn("status client throttled", "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfter)
			s.respondJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "too many status requests",
			})
		})
	}
}
