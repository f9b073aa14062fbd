// Package network implements the HTTP collaborator of spec.md §6: a
// fetch(method, url, headers, body, max_bytes, timeout) contract guarded by
// a host allowlist and a golang.org/x/time/rate token bucket, independent
// concerns applied in that order before any request leaves the process.
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Status is the outcome discriminant of a Fetch call, covering the
// Blocked/Timeout/TooLarge outcomes of spec.md §6 alongside a normal
// response.
type Status int

const (
	StatusOK Status = iota
	StatusBlocked
	StatusTimeout
	StatusTooLarge
)

// Response is the result of a successful Fetch.
type Response struct {
	Status  Status
	Code    int
	Headers http.Header
	Body    []byte
	Reason  string // set when Status != StatusOK
}

const (
	maxAllowedBytes   = 10 << 20
	maxAllowedTimeout = 30 * time.Second
)

// Allowlist gates which hosts the collaborator may reach. A nil or empty
// Allowlist denies every request, matching spec.md §6's "denies by
// default when no allowlist is configured."
type Allowlist struct {
	Hosts map[string]bool
}

// NewAllowlist builds an Allowlist from a list of hostnames.
func NewAllowlist(hosts []string) *Allowlist {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		set[strings.ToLower(h)] = true
	}
	return &Allowlist{Hosts: set}
}

func (a *Allowlist) allowed(host string) bool {
	if a == nil || len(a.Hosts) == 0 {
		return false
	}
	return a.Hosts[strings.ToLower(host)]
}

// Client is the HTTP collaborator: every Fetch call passes through the
// rate limiter, then the allowlist, then a bounded-size, bounded-time
// round trip.
type Client struct {
	Allow   *Allowlist
	Limiter *rate.Limiter
	HTTP    *http.Client
}

// New builds a Client. ratePerSec/burst of zero disables limiting
// (unlimited), matching a Config with no network.rate_per_sec set.
func New(allow *Allowlist, ratePerSec float64, burst int) *Client {
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Client{
		Allow:   allow,
		Limiter: limiter,
		HTTP:    &http.Client{},
	}
}

// Fetch implements the collaborator contract of spec.md §6. maxBytes and
// timeout are clamped to the caller-supplied ceilings the interpreter
// enforces (≤10MB, ≤30s).
func (c *Client) Fetch(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, maxBytes int64, timeout time.Duration) Response {
	if maxBytes <= 0 || maxBytes > maxAllowedBytes {
		maxBytes = maxAllowedBytes
	}
	if timeout <= 0 || timeout > maxAllowedTimeout {
		timeout = maxAllowedTimeout
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{Status: StatusBlocked, Reason: "invalid URL"}
	}
	if !c.Allow.allowed(u.Hostname()) {
		return Response{Status: StatusBlocked, Reason: fmt.Sprintf("host not allowlisted: %s", u.Hostname())}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Response{Status: StatusTimeout, Reason: "rate limited"}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), strings.NewReader(string(body)))
	if err != nil {
		return Response{Status: StatusBlocked, Reason: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return Response{Status: StatusTimeout, Reason: "request timed out"}
		}
		return Response{Status: StatusBlocked, Reason: err.Error()}
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return Response{Status: StatusBlocked, Reason: err.Error()}
	}
	if int64(len(data)) > maxBytes {
		return Response{Status: StatusTooLarge, Reason: fmt.Sprintf("response exceeds %d bytes", maxBytes)}
	}

	return Response{
		Status:  StatusOK,
		Code:    resp.StatusCode,
		Headers: resp.Header,
		Body:    data,
	}
}
