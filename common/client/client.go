package client

import (
	"net/http"
	"time"

	"github.com/fuchsia74/apiconform/common/config"
)

// HTTPClient serves buffered request/response exchanges. The overall timeout
// covers connect, request write, and full body read.
var HTTPClient *http.Client

// StreamClient serves streaming exchanges. It carries a longer overall
// timeout since SSE responses may emit chunks for minutes.
var StreamClient *http.Client

func init() {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   config.RequestTimeout,
	}
	StreamClient = &http.Client{
		Transport: transport,
		Timeout:   config.StreamTimeout,
	}
}
