package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ErnestIssa/peak-mode/pkg/circuitbreaker"
)

const (
	remoteTimeout    = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// remote is the HTTP plumbing shared by the dropshipping catalog clients.
type remote struct {
	baseURL string
	http    *http.Client
	header  http.Header
	breaker *circuitbreaker.Breaker[[]byte]
}

func newRemote(name, baseURL string, header http.Header, client *http.Client) *remote {
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   remoteTimeout,
		}
	}
	settings := circuitbreaker.DefaultSettings(name)
	settings.IsFailure = func(err error) bool { return errors.Is(err, ErrUpstream) }

	return &remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		header:  header,
		breaker: circuitbreaker.New[[]byte](settings),
	}
}

// getJSON decodes the body of GET path into out. A 404 is ErrProductNotFound.
func (r *remote) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := r.breaker.Execute(func() ([]byte, error) {
		return r.get(ctx, path, query)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUpstream, err)
	}
	return nil
}

func (r *remote) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := r.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProductNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("catalog request rejected with status %d", resp.StatusCode)
	}
	return raw, nil
}

// flexPrice accepts a price sent as a JSON number or string. Ranges such as
// "2.35-5.20" resolve to their lower bound.
type flexPrice struct {
	decimal.Decimal
}

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		p.Decimal = decimal.Zero
		return nil
	}
	if lo, _, ok := strings.Cut(s, "-"); ok && lo != "" {
		s = lo
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	p.Decimal = d
	return nil
}
