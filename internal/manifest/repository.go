// Package manifest maintains the per-user main.json document that indexes
// every processed scan. The document is a single JSON blob in object storage
// mutated by full-document overwrite; there is no conditional write and no
// merge, so concurrent appends resolve last-write-wins.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scansum/internal/domain"
	"scansum/internal/storage"
)

// FileName is the reserved key leaf for the manifest document. Image
// filenames are timestamp-derived, so they never collide with it in practice.
const FileName = "main.json"

const contentTypeJSON = "application/json"

// Repository owns the read-modify-write cycle against one user's manifest.
type Repository struct {
	store storage.ObjectStore
}

// New creates a Repository over the given object store.
func New(store storage.ObjectStore) (*Repository, error) {
	if store == nil {
		return nil, errors.New("manifest: store must not be nil")
	}
	return &Repository{store: store}, nil
}

// Key returns the manifest blob key for a user.
func Key(user string) string {
	return UserPrefix(user) + FileName
}

// UserPrefix returns the key prefix under which all of a user's blobs live.
func UserPrefix(user string) string {
	return "images/" + user + "/"
}

// Read fetches the user's manifest. A missing blob is the first-time-user
// bootstrap path and yields an empty manifest, not an error. Malformed
// content (unparsable JSON, or an images field that is not a list) also
// yields an empty manifest: the document self-heals by discarding on the
// next append. Corruption is logged since callers never see it.
func (r *Repository) Read(ctx context.Context, user string) (domain.Manifest, error) {
	if strings.TrimSpace(user) == "" {
		return domain.Manifest{}, errors.New("manifest: user must not be empty")
	}
	key := Key(user)

	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Manifest{Images: []domain.ScanRecord{}}, nil
		}
		return domain.Manifest{}, fmt.Errorf("manifest: read %q: %w", key, err)
	}

	m, ok := decode(data)
	if !ok {
		slog.Warn("manifest content malformed, treating as empty", "key", key)
		return domain.Manifest{Images: []domain.ScanRecord{}}, nil
	}
	return m, nil
}

// Append reads the manifest, appends record, and writes the full document
// back, returning the manifest's public URL.
//
// The cycle is not atomic: two concurrent appends for the same user can both
// read the same snapshot, and the later Put silently discards the earlier
// writer's record. Hardening this requires a conditional put keyed on the
// blob's entity tag; the store offers none, so the contract here is
// last-write-wins.
func (r *Repository) Append(ctx context.Context, user string, record domain.ScanRecord) (string, error) {
	m, err := r.Read(ctx, user)
	if err != nil {
		return "", err
	}
	m.Images = append(m.Images, record)
	return r.write(ctx, user, m)
}

// Remove rewrites the manifest without any record matching imageName. It
// exists for the cascade-delete policy; with the policy off, delete leaves
// the record orphaned exactly as Append wrote it.
func (r *Repository) Remove(ctx context.Context, user, imageName string) error {
	m, err := r.Read(ctx, user)
	if err != nil {
		return err
	}
	kept := m.Images[:0]
	for _, rec := range m.Images {
		if rec.ImageName != imageName {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(m.Images) {
		return nil
	}
	m.Images = kept
	_, err = r.write(ctx, user, m)
	return err
}

func (r *Repository) write(ctx context.Context, user string, m domain.Manifest) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("manifest: marshal for %q: %w", user, err)
	}
	url, err := r.store.Put(ctx, Key(user), data, contentTypeJSON)
	if err != nil {
		return "", fmt.Errorf("manifest: write %q: %w", Key(user), err)
	}
	return url, nil
}

// decode parses raw manifest bytes. The images field must be a JSON array;
// any other shape (including a valid JSON document with "images": "x") is
// treated as malformed.
func decode(data []byte) (domain.Manifest, bool) {
	var probe struct {
		Images json.RawMessage `json:"images"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Manifest{}, false
	}
	if len(probe.Images) == 0 {
		return domain.Manifest{}, false
	}
	var records []domain.ScanRecord
	if err := json.Unmarshal(probe.Images, &records); err != nil {
		return domain.Manifest{}, false
	}
	if records == nil {
		records = []domain.ScanRecord{}
	}
	return domain.Manifest{Images: records}, true
}
