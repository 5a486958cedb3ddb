// Package allowlist provides optional bluemonday passes that run after the
// deny-list sanitizer, for callers who want only a known-good subset of
// HTML to survive.
package allowlist

import (
	"errors"
	"fmt"
	"sort"

	"github.com/microcosm-cc/bluemonday"
)

// ErrUnknownAllowlist is returned by Lookup for unregistered names.
var ErrUnknownAllowlist = errors.New("unknown allowlist")

// Filter rewrites already sanitised HTML.
type Filter func(string) string

const (
	None   = "none"
	UGC    = "ugc"
	Strict = "strict"
)

var filters = map[string]func() Filter{
	None: func() Filter {
		return func(s string) string { return s }
	},
	// UGC keeps the formatting a rich text editor produces: headings,
	// lists, links, images, tables and code.
	UGC: func() Filter {
		return bluemonday.UGCPolicy().Sanitize
	},
	Strict: func() Filter {
		return bluemonday.StrictPolicy().Sanitize
	},
}

// Lookup returns the filter registered under name. An empty name is None.
func Lookup(name string) (Filter, error) {
	if name == "" {
		name = None
	}
	build, ok := filters[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %v)", ErrUnknownAllowlist, name, Names())
	}
	return build(), nil
}

// Names lists the registered allowlists.
func Names() []string {
	out := make([]string, 0, len(filters))
	for name := range filters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
