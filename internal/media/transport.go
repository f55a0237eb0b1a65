// Package media fetches remote venue photos to local scratch storage.
//
// Downloads go through an ordered list of transport strategies: a rich
// browser-like client first (image hosts reject basic clients), then a
// plain fallback. Each transport returns the body bytes or a
// diagnostic error; the first non-empty body wins.
package media

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Transport is one download strategy. Fetch returns the response body
// or an error carrying enough detail (status, underlying error) to be
// surfaced in the run report.
type Transport interface {
	Name() string
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const (
	desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	genericUserAgent = "Mozilla/5.0"
	imageAccept      = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	photoReferer     = "https://www.google.com/"
)

func redirectLimiter(max int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

func newHTTPClient(timeout, connectTimeout time.Duration, maxRedirects int, insecureTLS bool) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
	}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: redirectLimiter(maxRedirects),
	}
}

// RichTransport is the primary download strategy: browser headers,
// bounded redirects, certificate verification on. A connection-layer
// failure triggers exactly one retry with verification disabled, which
// papers over broken local trust chains; non-2xx responses are never
// retried.
type RichTransport struct {
	client   HTTPDoer
	insecure HTTPDoer
}

// NewRichTransport builds the primary transport with the given
// timeouts and redirect bound.
func NewRichTransport(timeout, connectTimeout time.Duration, maxRedirects int) *RichTransport {
	return &RichTransport{
		client:   newHTTPClient(timeout, connectTimeout, maxRedirects, false),
		insecure: newHTTPClient(timeout, connectTimeout, maxRedirects, true),
	}
}

func (t *RichTransport) Name() string { return "primary" }

// Fetch downloads the URL with browser-like headers. Any non-empty
// 2xx body is accepted.
func (t *RichTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept", imageAccept)
	req.Header.Set("Referer", photoReferer)

	resp, err := t.client.Do(req)
	if err != nil {
		// Connection-layer failure: retry once without certificate
		// verification. HTTP-level failures never reach this path.
		retryReq := req.Clone(ctx)
		resp, err = t.insecure.Do(retryReq)
		if err != nil {
			return nil, fmt.Errorf("fetch failed (http=0, err=%v)", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch failed (http=%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body (http=%d): %w", resp.StatusCode, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body (http=%d)", resp.StatusCode)
	}
	return body, nil
}

// BasicTransport is the fallback strategy: a plain GET with a generic
// user agent and a single bounded timeout.
type BasicTransport struct {
	client HTTPDoer
}

// NewBasicTransport builds the fallback transport.
func NewBasicTransport(timeout time.Duration) *BasicTransport {
	return &BasicTransport{
		client: &http.Client{Timeout: timeout},
	}
}

func (t *BasicTransport) Name() string { return "fallback" }

// Fetch downloads the URL with minimal headers.
func (t *BasicTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", genericUserAgent)
	req.Header.Set("Referer", photoReferer)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch failed (http=%d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body (http=%d)", resp.StatusCode)
	}
	return body, nil
}
