package resource

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	stdnet "painter/std/net"
)

// Fetcher retrieves resources by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (body []byte, contentType string, err error)
}

// DefaultFetcher reads HTTP/HTTPS URLs, data URIs and local files. Relative
// URIs are resolved against a base, which is either a URL or a directory.
type DefaultFetcher struct {
	baseURL string
}

// NewFetcher creates a DefaultFetcher with the given base URL or directory.
func NewFetcher(baseURL string) *DefaultFetcher {
	return &DefaultFetcher{baseURL: baseURL}
}

// Fetch retrieves the resource at the given URI.
func (f *DefaultFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	if IsDataURI(uri) {
		return DecodeDataURI(uri)
	}
	resolved := uri
	if !stdnet.IsNetworkURL(uri) && f.baseURL != "" {
		if stdnet.IsNetworkURL(f.baseURL) {
			resolved = stdnet.ResolveURL(f.baseURL, uri)
		} else if !filepath.IsAbs(uri) && !strings.HasPrefix(uri, "file://") {
			resolved = filepath.Join(f.baseURL, uri)
		}
	}
	if stdnet.IsNetworkURL(resolved) {
		return stdnet.Fetch(ctx, resolved)
	}
	if strings.HasPrefix(resolved, "file://") {
		u, err := url.Parse(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("parsing %s: %w", resolved, err)
		}
		resolved = u.Path
	}
	body, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", err
	}
	return body, "", nil
}

// IsDataURI reports whether uri is a data: URI.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// DecodeDataURI returns the payload and media type of a data: URI.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("malformed data URI: missing comma")
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	mediaType := meta
	if strings.HasSuffix(meta, ";base64") {
		mediaType = strings.TrimSuffix(meta, ";base64")
		body, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decoding data URI: %w", err)
		}
		return body, mediaType, nil
	}
	body, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decoding data URI: %w", err)
	}
	return []byte(body), mediaType, nil
}
