// Package net downloads palette templates and image sources over HTTP.
package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "painter/1.0 (compatible; Go)"

// MaxBodyBytes bounds a single download.
const MaxBodyBytes = 32 << 20

// ErrTooLarge is returned for a body longer than MaxBodyBytes.
var ErrTooLarge = errors.New("response body too large")

var client = &http.Client{Timeout: 30 * time.Second}

// StatusError is a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Code, e.URL)
}

// Fetch GETs rawURL and returns its body and content type. A missing
// Content-Type header is sniffed from the body.
func Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, "", &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if len(body) > MaxBodyBytes {
		return nil, "", fmt.Errorf("fetching %s: %w", rawURL, ErrTooLarge)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return body, ct, nil
}

// ResolveURL resolves ref against base, returning ref unchanged when either
// does not parse.
func ResolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func IsNetworkURL(s string) bool {
	return strings.HasPrefix(s, "http://") || IsSecureURL(s)
}

// IsSecureURL reports an https source, the kind kept as a view's origin URL.
func IsSecureURL(s string) bool {
	return strings.HasPrefix(s, "https://")
}
