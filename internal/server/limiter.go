package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
)

// StreamLimiter tracks and limits concurrent streams per IP and in total.
type StreamLimiter struct {
	mu         sync.Mutex
	ipCounts   map[string]int
	totalCount int
	maxPerIP   int
	maxTotal   int
}

// NewStreamLimiter creates a limiter. Zero disables a limit.
func NewStreamLimiter(maxPerIP, maxTotal int) *StreamLimiter {
	return &StreamLimiter{
		ipCounts: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// TryAcquire takes a slot for ip, or reports false if a limit is reached.
func (l *StreamLimiter) TryAcquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxTotal > 0 && l.totalCount >= l.maxTotal {
		return false
	}
	if l.maxPerIP > 0 && l.ipCounts[ip] >= l.maxPerIP {
		return false
	}

	l.ipCounts[ip]++
	l.totalCount++
	return true
}

// Release returns a slot taken by TryAcquire.
func (l *StreamLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ipCounts[ip] > 0 {
		l.ipCounts[ip]--
		if l.ipCounts[ip] == 0 {
			delete(l.ipCounts, ip)
		}
	}
	if l.totalCount > 0 {
		l.totalCount--
	}
}

// Stats returns the open stream count and the number of distinct IPs.
func (l *StreamLimiter) Stats() (total, ips int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalCount, len(l.ipCounts)
}

// getRealIP extracts the client IP, preferring X-Forwarded-For and
// X-Real-IP from a reverse proxy over the direct remote address.
func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// "client, proxy1, proxy2"
		if client := strings.TrimSpace(strings.Split(xff, ",")[0]); client != "" {
			return client
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return extractIP(r.RemoteAddr)
}

// extractIP strips the port from an ip:port address.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
