package httpx

import (
	"net"
	"net/http"
	"time"
)

var transport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:        100,
	MaxConnsPerHost:     100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// ClientWithTimeout shares one pooled transport across callers but caps each
// request at the given budget.
func ClientWithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: transport}
}
