package store

import (
	"strings"

	"github.com/omnikv/omnistore/lib/backend"
)

// GetStoreForURI splits a URI addressing a single entry into a store
// rooted at the parent and the relative key of the final path segment:
//
//	GetStoreForURI("file:///data/foo/bar") -> store("file:///data/foo"), "bar"
//	GetStoreForURI("redis://localhost/cache/k") -> store("redis://localhost/cache"), "k"
//
// The returned store uses the default config; the caller must Close it.
func GetStoreForURI(rawURI string) (IStore, string, error) {
	uri, err := backend.EnsureURI(rawURI)
	if err != nil {
		return nil, "", err
	}
	base, key := splitKey(uri)
	if key == "" {
		return nil, "", backend.NewErrorf(backend.CodeConfiguration, "uri carries no key: %q", rawURI)
	}
	s, err := New(DefaultConfig(base))
	if err != nil {
		return nil, "", err
	}
	return s, key, nil
}

// splitKey cuts the final path segment off an absolute URI, keeping the
// query string with the base.
func splitKey(uri string) (base, key string) {
	rest := uri
	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}
	rest = strings.TrimRight(rest, "/")
	slash := strings.LastIndexByte(rest, '/')
	if slash < 0 || strings.HasSuffix(rest[:slash], "/") || strings.HasSuffix(rest[:slash+1], "://") {
		return uri, ""
	}
	return rest[:slash] + query, rest[slash+1:]
}
