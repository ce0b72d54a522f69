// Package storage is the batch file store: content-addressable upload and
// download of raw batch bytes. The engine never interprets stored bytes;
// it only needs them back verbatim for reconciliation and audit.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidKey       = errors.New("invalid_storage_key")
	ErrObjectNotFound   = errors.New("object_not_found")
	ErrEmptyObject      = errors.New("empty_object")
	ErrUnknownBackend   = errors.New("unknown_storage_backend")
	ErrObjectImmutable  = errors.New("object_immutable")
	ErrMissingRootDir   = errors.New("missing_storage_root")
	ErrKeyOutsideBucket = errors.New("key_outside_bucket")
)

// Store uploads and reads raw batch files.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// Digest computes the hex SHA-256 of a file's bytes, the identity used for
// duplicate-import detection and audit trails.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BatchKey builds the storage key for a batch file:
// billing/direct-debit/{direction}/{yyyy-mm-dd}/batch-{id}-{sanitized-filename}.
func BatchKey(direction string, businessDate time.Time, batchID snowflake.ID, fileName string) string {
	return fmt.Sprintf("billing/direct-debit/%s/%s/batch-%s-%s",
		strings.ToLower(strings.TrimSpace(direction)),
		businessDate.UTC().Format("2006-01-02"),
		batchID,
		SanitizeFileName(fileName),
	)
}

// SanitizeFileName keeps a human-traceable name while dropping anything
// that could break a key: path separators, control bytes, whitespace runs.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	// Keep only the last path element of whatever the browser sent.
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
