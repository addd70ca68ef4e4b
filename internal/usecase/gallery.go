package usecase

import (
	"context"
	"errors"
	"strings"

	"scansum/internal/domain"
	"scansum/internal/manifest"
)

// BlobLister lists and deletes blobs and derives their public URLs.
type BlobLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ManifestReader reads and prunes the per-user manifest.
type ManifestReader interface {
	Read(ctx context.Context, user string) (domain.Manifest, error)
	Remove(ctx context.Context, user, imageName string) error
}

// GalleryService lists a user's scans by joining the blob listing against the
// manifest, and deletes individual scans.
type GalleryService struct {
	store     BlobLister
	manifests ManifestReader
	// cascadeDelete also removes the manifest record when a scan is
	// deleted. Off by default: the blob listing drives the gallery, so an
	// orphaned record is retained but unreachable.
	cascadeDelete bool
}

func NewGalleryService(store BlobLister, manifests ManifestReader, cascadeDelete bool) (*GalleryService, error) {
	if store == nil {
		return nil, errors.New("usecase: blob lister must not be nil")
	}
	if manifests == nil {
		return nil, errors.New("usecase: manifest reader must not be nil")
	}
	return &GalleryService{store: store, manifests: manifests, cascadeDelete: cascadeDelete}, nil
}

// List returns the user's scans in storage listing order. Each item's ID is
// its 1-based position in that order and is not stable across listings. The
// join against the manifest is a left join keyed on the key's filename leaf;
// manifest records with no surviving blob are dropped.
func (s *GalleryService) List(ctx context.Context, user string) ([]domain.ScanItem, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, newError(ErrorInvalidInput, "empty_user", nil)
	}

	keys, err := s.store.List(ctx, manifest.UserPrefix(user))
	if err != nil {
		return nil, newError(ErrorInternal, "storage_list_error", err)
	}

	m, err := s.manifests.Read(ctx, user)
	if err != nil {
		return nil, newError(ErrorInternal, "manifest_read_error", err)
	}

	items := make([]domain.ScanItem, 0, len(keys))
	for _, key := range keys {
		name := keyLeaf(key)
		if name == manifest.FileName {
			continue
		}
		item := domain.ScanItem{
			ID:       len(items) + 1,
			Key:      key,
			ImageURL: s.store.PublicURL(key),
			Name:     name,
		}
		if rec, ok := m.FindByImageName(name); ok {
			item.OcrText = rec.OcrText
			item.Summary = rec.Summary
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete removes the scan's image blob. Unless cascade deletion is enabled
// the matching manifest record is left in place, orphaned.
func (s *GalleryService) Delete(ctx context.Context, user, key string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return newError(ErrorInvalidInput, "empty_user", nil)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return newError(ErrorInvalidInput, "empty_key", nil)
	}
	if !strings.HasPrefix(key, manifest.UserPrefix(user)) {
		return newError(ErrorInvalidInput, "key_outside_user_prefix", nil)
	}
	if keyLeaf(key) == manifest.FileName {
		return newError(ErrorInvalidInput, "reserved_file_name", nil)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return newError(ErrorInternal, "storage_delete_error", err)
	}
	if s.cascadeDelete {
		if err := s.manifests.Remove(ctx, user, keyLeaf(key)); err != nil {
			return newError(ErrorInternal, "manifest_remove_error", err)
		}
	}
	return nil
}

func keyLeaf(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
