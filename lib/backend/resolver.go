package backend

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Scheme Registry
// --------------------------------------------------------------------------

// Factory constructs a ready-to-use adapter from a parsed URI.
// Construction must be side-effect-free beyond establishing connection
// state: no implicit creation of remote resources.
type Factory func(u *url.URL) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an adapter factory available under the given scheme.
// Engines call this from their package init, mirroring database/sql
// driver registration. Registering a scheme twice panics.
func Register(scheme string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[scheme]; dup {
		panic("backend: Register called twice for scheme " + scheme)
	}
	registry[scheme] = factory
}

// Schemes returns the sorted list of registered schemes.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	schemes := make([]string, 0, len(registry))
	for s := range registry {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// --------------------------------------------------------------------------
// URI Resolution
// --------------------------------------------------------------------------

// Resolve parses the given URI, selects the registered adapter factory
// for its scheme and returns a constructed adapter. Bare filesystem
// paths are accepted and resolved as file:// URIs.
func Resolve(rawURI string) (Adapter, error) {
	uri, err := EnsureURI(rawURI)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, WrapError(CodeConfiguration, "invalid uri "+rawURI, err)
	}

	registryMu.RLock()
	factory, ok := registry[u.Scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, NewErrorf(CodeUnsupportedScheme, "no adapter registered for scheme %q (registered: %s)",
			u.Scheme, strings.Join(Schemes(), ", "))
	}
	return factory(u)
}

// EnsureURI normalizes arbitrary uri-like input to an absolute URI with
// a scheme. Bare or relative paths become file:// URIs.
func EnsureURI(rawURI string) (string, error) {
	uri := strings.TrimSpace(rawURI)
	if uri == "" {
		return "", NewError(CodeConfiguration, "empty uri")
	}
	if strings.Contains(uri, "../") {
		return "", NewErrorf(CodeConfiguration, "path traversal forbidden: %q", rawURI)
	}
	u, err := url.Parse(uri)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return uri, nil
	}
	abs, err := filepath.Abs(uri)
	if err != nil {
		return "", WrapError(CodeConfiguration, "invalid path "+rawURI, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// JoinURI joins a base URI with a relative path, normalizing slashes.
func JoinURI(baseURI, path string) (string, error) {
	uri, err := EnsureURI(baseURI)
	if err != nil {
		return "", err
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return uri, nil
	}
	return strings.TrimRight(uri, "/") + "/" + path, nil
}
