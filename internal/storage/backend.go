// Package storage persists forecast payloads and generated files over a
// pluggable backend chosen by URI scheme: a local directory (bare path or
// file://), an S3 bucket (s3://bucket/prefix) or a Redis keyspace
// (redis://host:port/db?prefix=name).
//
// Keys are slash-separated paths relative to the backend root, for example
// "northwest-avalanche-center/snoqualmie-pass/2024/2024-01-05.json".
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
)

// Backend is a flat keyspace of byte blobs with hierarchical, slash-separated keys.
//
// Read returns an error wrapping domain.ErrNotFound for a missing key. Network
// backends wrap transport failures, including per-call timeouts, as
// domain.ErrBackendUnavailable.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the content at key, creating parent directories as needed.
	Write(ctx context.Context, key string, data []byte) error
	// List returns every key under prefix, recursively, in ascending order.
	// A prefix with nothing under it yields an empty list, not an error.
	List(ctx context.Context, prefix string) ([]string, error)
	// MakeDirs ensures prefix exists. It is a no-op for backends without directories.
	MakeDirs(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Location renders key as a human-readable path or URI for logs and results.
	Location(key string) string
	// URI is the normalized root URI of the backend.
	URI() string
}

// Options carries the settings backends need beyond their URI.
type Options struct {
	// Timeout bounds each network call. Zero means no per-call deadline.
	Timeout    time.Duration
	S3Endpoint string
	S3Region   string
	Logger     *slog.Logger
}

// Open constructs the backend selected by the URI scheme.
func Open(ctx context.Context, rawURI string, opts Options) (Backend, error) {
	dir, ok, err := localPath(rawURI)
	if err != nil {
		return nil, err
	}
	if ok {
		return NewLocalBackend(dir), nil
	}
	uri, err := NormalizeURI(rawURI)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse storage uri %q: %w: %w", rawURI, domain.ErrValidation, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch u.Scheme {
	case "s3":
		return OpenS3Backend(ctx, u, opts)
	case "redis", "rediss":
		return OpenRedisBackend(u, opts)
	default:
		return nil, fmt.Errorf("storage uri %q: unsupported scheme %q: %w", rawURI, u.Scheme, domain.ErrValidation)
	}
}

// NormalizeURI turns a bare or relative local path into an absolute file:// URI
// and trims trailing slashes from remote URIs. Two URIs naming the same
// location normalize to the same string. Local paths are escaped, so "#", "?"
// and "%" stay part of the directory name.
func NormalizeURI(raw string) (string, error) {
	dir, ok, err := localPath(raw)
	if err != nil {
		return "", err
	}
	if ok {
		return fileURI(dir), nil
	}

	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "?") {
		return raw, nil
	}
	return strings.TrimRight(raw, "/"), nil
}

// localPath resolves raw to an absolute directory when it names local storage:
// a bare path taken literally, or a file:// URI whose path is unescaped.
func localPath(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty storage uri: %w", domain.ErrValidation)
	}

	local, isURI := strings.CutPrefix(raw, "file://")
	switch {
	case isURI:
		if unescaped, err := url.PathUnescape(local); err == nil {
			local = unescaped
		}
	case strings.Contains(raw, "://"):
		return "", false, nil
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		return "", false, fmt.Errorf("resolve %q: %w", raw, err)
	}
	return abs, true, nil
}

func fileURI(dir string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dir)}).String()
}

// joinKey joins key segments with slashes, dropping empty segments.
func joinKey(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return path.Join(nonEmpty...)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
