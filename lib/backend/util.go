package backend

import "strings"

// MatchPrefix reports whether key falls under prefix, matching whole
// path segments: prefix "a" matches "a" and "a/b" but not "ab". An
// empty prefix matches every key.
func MatchPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	if key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+"/")
}

// ValidateKey checks that the given key is a valid relative store key:
// non-empty, no scheme, no leading slash, no path traversal. It returns
// the key with empty and "." segments dropped.
func ValidateKey(key string) (string, error) {
	if key == "" {
		return "", NewError(CodeConfiguration, "empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", NewErrorf(CodeConfiguration, "invalid absolute key: %q", key)
	}
	if strings.Contains(key, "://") {
		return "", NewErrorf(CodeConfiguration, "invalid uri as key: %q", key)
	}
	if strings.Contains(key, "..") {
		return "", NewErrorf(CodeConfiguration, "path traversal forbidden: %q", key)
	}
	parts := make([]string, 0, strings.Count(key, "/")+1)
	for _, p := range strings.Split(strings.TrimRight(key, "/"), "/") {
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", NewErrorf(CodeConfiguration, "invalid key: %q", key)
	}
	return strings.Join(parts, "/"), nil
}
