package netutil

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes NewClient.
type ClientOptions struct {
	// Timeout bounds one logical call including retries.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	Backoff time.Duration
}

// NewClient returns an http.Client whose transport retries transient dial and
// timeout failures with a linear backoff.
func NewClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &RetryTransport{Base: base, Retries: opts.Retries, Backoff: opts.Backoff},
	}
}

// RetryTransport repeats a round trip while ShouldRetry holds for its error.
// Requests with a body are only repeated when GetBody is set. Methods that are
// not idempotent, such as the Bot API POSTs, are only repeated when the
// connection was never established, so a written request is never replayed.
type RetryTransport struct {
	Base    http.RoundTripper
	Retries int
	Backoff time.Duration
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	var lastErr error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		r := req
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				r.Body = body
			}
		}

		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(req, err) || attempt == t.Retries {
			break
		}

		timer := time.NewTimer(t.Backoff * time.Duration(attempt+1))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func retryable(req *http.Request, err error) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return ShouldRetry(err)
	}
	return DialFailed(err)
}
