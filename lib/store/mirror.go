package store

import (
	"context"
	"io"
	"path"

	"github.com/omnikv/omnistore/lib/backend"
)

// MirrorConfig selects which keys Mirror copies.
type MirrorConfig struct {
	// Prefix restricts the copy to keys under this prefix. Empty
	// mirrors every key.
	Prefix string

	// ExcludePrefix skips keys under this prefix.
	ExcludePrefix string

	// Glob, when set, keeps only keys matching this path.Match pattern.
	Glob string

	// Overwrite replaces keys that already exist in the target. When
	// false, existing target keys are skipped.
	Overwrite bool
}

// Mirror copies every entry selected by cfg from the source store into
// the target, streaming each payload so large values never load fully
// into memory. The persisted serialization mode travels with the entry;
// timestamps and TTLs restart on the target. Returns the number of keys
// copied.
func Mirror(ctx context.Context, source, target IStore, cfg MirrorConfig) (int, error) {
	if cfg.Glob != "" {
		// path.Match only errors on malformed patterns, so validate
		// once up front instead of per key
		if _, err := path.Match(cfg.Glob, ""); err != nil {
			return 0, backend.WrapError(backend.CodeConfiguration, "invalid glob pattern "+cfg.Glob, err)
		}
	}

	copied := 0
	for key, err := range source.IterateKeys(ctx, cfg.Prefix) {
		if err != nil {
			return copied, err
		}
		if cfg.ExcludePrefix != "" && backend.MatchPrefix(key, cfg.ExcludePrefix) {
			continue
		}
		if cfg.Glob != "" {
			if ok, _ := path.Match(cfg.Glob, key); !ok {
				continue
			}
		}
		if !cfg.Overwrite {
			exists, err := target.Exists(ctx, key)
			if err != nil {
				return copied, err
			}
			if exists {
				continue
			}
		}
		if err := mirrorKey(ctx, source, target, key); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

// mirrorKey streams one entry from source to target, carrying the
// source's serialization mode over.
func mirrorKey(ctx context.Context, source, target IStore, key string) error {
	info, err := source.Info(ctx, key)
	if err != nil {
		return err
	}
	rc, err := source.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	wc, err := target.Create(ctx, key, WithMode(info.Mode))
	if err != nil {
		return err
	}
	if _, err := io.Copy(wc, rc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
