// Package source loads the raw signup and platform datasets from local files
// or HTTP(S) URLs and normalizes them into the shapes the pipeline expects.
//
// Remote reads are retried on transport errors and 5xx responses with a
// linear backoff. JSON platform documents may be a flat array of user
// objects or that array wrapped in another array; both decode to the same
// sequence here so nothing downstream branches on shape.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rewired-gh/signuptrends/internal/logger"
	"github.com/rewired-gh/signuptrends/internal/tabular"
)

var (
	// ErrEmptyLocation is returned when a source has no location configured.
	ErrEmptyLocation = errors.New("source location is empty")
	// ErrUnsupportedShape is returned for JSON that is not an array of
	// objects or an array of such arrays.
	ErrUnsupportedShape = errors.New("unsupported JSON shape")
)

// Fetcher reads a source location into memory.
type Fetcher struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewFetcher creates a Fetcher. Non-positive retry settings fall back to
// 3 attempts and a one second base delay.
func NewFetcher(timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Fetcher {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Fetcher{
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Fetch returns the contents of location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if IsRemote(location) {
		return f.fetchRemote(ctx, location)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	return data, nil
}

// fetchRemote performs HTTP request with retry logic
func (f *Fetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for i := 0; i < f.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			logger.Debug("Fetch %s attempt %d failed: %v", url, i+1, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			logger.Debug("Fetch %s attempt %d failed: %v", url, i+1, lastErr)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read body: %w", readErr)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// LoadSignups fetches and parses the signup CSV.
func LoadSignups(ctx context.Context, f *Fetcher, location string) (*tabular.Table, error) {
	data, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	table, err := tabular.Parse(bytes.NewReader(data), tabular.Options{})
	if err != nil {
		return nil, err
	}
	logger.Debug("Parsed %d signup rows from %s (%d malformed)", len(table.Rows), location, table.Malformed)
	return table, nil
}

// Platform is the normalized platform dataset: one optional last-access
// value per user, in document order.
type Platform struct {
	LastAccess []*string
	Skipped    int // entries that were not JSON objects
}

// LoadPlatform fetches and decodes the platform JSON document.
func LoadPlatform(ctx context.Context, f *Fetcher, location, field string) (*Platform, error) {
	data, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	p, err := DecodePlatform(data, field)
	if err != nil {
		return nil, err
	}
	logger.Debug("Decoded %d platform users from %s (%d skipped)", len(p.LastAccess), location, p.Skipped)
	return p, nil
}

// DecodePlatform accepts a flat array of user objects or an array whose
// elements are all such arrays, and extracts field from each object.
// A missing, null or non-string field yields a nil entry. A document that is
// itself null is rejected.
func DecodePlatform(data []byte, field string) (*Platform, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to decode platform document: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("platform document is null: %w", ErrUnsupportedShape)
	}

	items, err := flatten(top)
	if err != nil {
		return nil, err
	}

	p := &Platform{LastAccess: make([]*string, 0, len(items))}
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			p.Skipped++
			continue
		}
		p.LastAccess = append(p.LastAccess, stringField(obj, field))
	}
	return p, nil
}

func flatten(top []json.RawMessage) ([]json.RawMessage, error) {
	nested := 0
	for _, el := range top {
		if isArray(el) {
			nested++
		}
	}
	switch {
	case nested == 0:
		return top, nil
	case nested != len(top):
		return nil, fmt.Errorf("%w: mixed arrays and objects at top level", ErrUnsupportedShape)
	}

	var items []json.RawMessage
	for _, el := range top {
		var inner []json.RawMessage
		if err := json.Unmarshal(el, &inner); err != nil {
			return nil, fmt.Errorf("failed to decode nested array: %w", err)
		}
		items = append(items, inner...)
	}
	return items, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func stringField(obj map[string]json.RawMessage, field string) *string {
	raw, ok := obj[field]
	if !ok {
		for k, v := range obj {
			if strings.EqualFold(k, field) {
				raw, ok = v, true
				break
			}
		}
	}
	if !ok {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
