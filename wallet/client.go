package wallet

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// newHTTPClient builds a retryablehttp client with retrying disabled
// (RetryMax: 0) and its internal leveled logger turned off, the same stance
// the teacher takes toward badger's logger (badger.DefaultOptions(...).
// WithLogger(nil)): the library is used for its Do/context-aware
// request-building surface, not its own retry policy, because both the
// tracker's poll loop and the submitter's preemption-aware retry loop need
// to own retry timing themselves.
func newHTTPClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	return c
}

// burstRequest issues a GET or POST against walletURL's /burst endpoint for
// the given requestType and query parameters, returning the raw response
// body for the caller to decode. Both the tracker and the submitter share
// this helper; only the HTTP method and extra query parameters differ.
func burstRequest(ctx context.Context, client *retryablehttp.Client, walletURL, method, requestType string, extra url.Values) ([]byte, error) {
	u, err := url.Parse(walletURL)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid wallet URL %q: %w", walletURL, err)
	}
	u.Path = "/burst"
	q := u.Query()
	q.Set("requestType", requestType)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet: request %s: %w", requestType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wallet: read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wallet: %s returned status %d: %s", requestType, resp.StatusCode, body)
	}
	return body, nil
}
