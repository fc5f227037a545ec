package script

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"painter/pkg/view"
	stdnet "painter/std/net"
)

// Load reads a palette from a file path or an http(s) URL. Sources ending
// in .js, or served as javascript, are evaluated as templates with params;
// anything else is decoded as JSON.
func Load(ctx context.Context, location string, params map[string]any) (*view.Palette, error) {
	var (
		data   []byte
		isJS   bool
		err    error
		source = location
	)
	if stdnet.IsNetworkURL(location) {
		var contentType string
		data, contentType, err = stdnet.Fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		if u, perr := url.Parse(location); perr == nil {
			source = u.Path
		}
		isJS = strings.Contains(contentType, "javascript")
	} else {
		data, err = os.ReadFile(location)
		if err != nil {
			return nil, err
		}
	}
	if strings.EqualFold(path.Ext(source), ".js") {
		isJS = true
	}
	if !isJS {
		return view.Parse(data)
	}
	p, err := New().Execute(string(data), params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return p, nil
}
