package transport

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitStatus is the rate limit window reported with a response.
type RateLimitStatus struct {
	Limit     int
	Remaining int
	Used      int
	ResetAt   time.Time
}

// ParseRateLimit reads the X-RateLimit-* headers. Missing or malformed
// fields are zero.
func ParseRateLimit(header http.Header) RateLimitStatus {
	status := RateLimitStatus{
		Limit:     headerInt(header, "X-RateLimit-Limit"),
		Remaining: headerInt(header, "X-RateLimit-Remaining"),
		Used:      headerInt(header, "X-RateLimit-Used"),
	}
	if reset := headerInt(header, "X-RateLimit-Reset"); reset > 0 {
		status.ResetAt = time.Unix(int64(reset), 0)
	}
	return status
}

func headerInt(header http.Header, name string) int {
	v := header.Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
