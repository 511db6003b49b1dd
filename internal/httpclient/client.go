package httpclient

import (
	"net/http"
	"time"
)

// User-Agent required: Yahoo blocks generic clients (401/429)
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Shared HTTP client with timeout and connection reuse.
var Default = New(30 * time.Second)

// New returns a client with the given timeout and the shared transport settings.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Do sends req with the browser User-Agent set.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = Default
	}
	req.Header.Set("User-Agent", UserAgent)
	return client.Do(req)
}
