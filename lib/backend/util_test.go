package backend

import (
	"errors"
	"testing"
)

func TestMatchPrefix(t *testing.T) {
	tests := []struct {
		key    string
		prefix string
		want   bool
	}{
		{key: "a", prefix: "", want: true},
		{key: "a", prefix: "a", want: true},
		{key: "a/b", prefix: "a", want: true},
		{key: "a/b/c", prefix: "a/b", want: true},
		{key: "ab", prefix: "a", want: false},
		{key: "a", prefix: "a/b", want: false},
		{key: "b", prefix: "a", want: false},
	}

	for _, tt := range tests {
		if got := MatchPrefix(tt.key, tt.prefix); got != tt.want {
			t.Errorf("MatchPrefix(%q, %q) = %v, want %v", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple key", input: "foo", want: "foo"},
		{name: "nested key", input: "a/b/c", want: "a/b/c"},
		{name: "trailing slash dropped", input: "a/b/", want: "a/b"},
		{name: "empty segments dropped", input: "a//b", want: "a/b"},
		{name: "dot segments dropped", input: "./a/./b", want: "a/b"},
		{name: "empty key", input: "", wantErr: true},
		{name: "absolute key", input: "/a", wantErr: true},
		{name: "uri as key", input: "file:///a", wantErr: true},
		{name: "traversal", input: "a/../b", wantErr: true},
		{name: "only slashes", input: "///", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateKey(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateKey(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateKey(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	base := NewError(CodeKeyNotFound, "key does not exist: foo")
	wrapped := WrapError(CodeBackend, "reading foo", base)

	if !errors.Is(base, ErrKeyNotFound) {
		t.Errorf("Expected direct error to match sentinel")
	}
	if !IsNotFound(wrapped) {
		t.Errorf("Expected wrapped error to match via unwrapping")
	}
	if IsNotFound(NewError(CodeBackend, "io failure")) {
		t.Errorf("Expected backend error not to match key-not-found")
	}

	var e *Error
	if !errors.As(wrapped, &e) || e.Code != CodeBackend {
		t.Errorf("Expected outermost code to be CodeBackend, got %v", e)
	}
}
