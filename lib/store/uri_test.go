package store

import (
	"context"
	"testing"

	_ "github.com/omnikv/omnistore/lib/backend/engines/memory"
)

func TestSplitKey(t *testing.T) {
	tests := []struct {
		uri  string
		base string
		key  string
	}{
		{uri: "file:///data/foo/bar", base: "file:///data/foo", key: "bar"},
		{uri: "file:///data/foo/bar/", base: "file:///data/foo", key: "bar"},
		{uri: "memory://cache/k", base: "memory://cache", key: "k"},
		{uri: "s3://bucket/prefix/key?endpoint=minio:9000", base: "s3://bucket/prefix?endpoint=minio:9000", key: "key"},
		// no key to split off
		{uri: "file:///", base: "file:///", key: ""},
		{uri: "memory://", base: "memory://", key: ""},
	}

	for _, tt := range tests {
		base, key := splitKey(tt.uri)
		if base != tt.base || key != tt.key {
			t.Errorf("splitKey(%q) = (%q, %q), want (%q, %q)", tt.uri, base, key, tt.base, tt.key)
		}
	}
}

func TestGetStoreForURI(t *testing.T) {
	s, key, err := GetStoreForURI("memory://cache/users/alice")
	if err != nil {
		t.Fatalf("GetStoreForURI failed: %v", err)
	}
	defer s.Close()

	if key != "alice" {
		t.Errorf("Expected key alice, got %q", key)
	}

	ctx := context.Background()
	if err := s.Put(ctx, key, "value"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil || got != "value" {
		t.Errorf("Get = %v, %v", got, err)
	}
}

func TestGetStoreForURIWithoutKey(t *testing.T) {
	if _, _, err := GetStoreForURI("memory://"); err == nil {
		t.Errorf("Expected error for uri without key")
	}
}
