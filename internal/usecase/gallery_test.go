package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"scansum/internal/domain"
)

type stubLister struct {
	keys       []string
	listErr    error
	deleteErr  error
	deletedKey string
	lastPrefix string
}

func (s *stubLister) List(_ context.Context, prefix string) ([]string, error) {
	s.lastPrefix = prefix
	return s.keys, s.listErr
}

func (s *stubLister) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedKey = key
	return nil
}

func (s *stubLister) PublicURL(key string) string {
	return "https://scan-bucket.s3.eu-central-1.amazonaws.com/" + key
}

type stubReader struct {
	manifest    domain.Manifest
	readErr     error
	removeErr   error
	removedName string
	removedUser string
}

func (s *stubReader) Read(_ context.Context, _ string) (domain.Manifest, error) {
	return s.manifest, s.readErr
}

func (s *stubReader) Remove(_ context.Context, user, imageName string) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removedUser = user
	s.removedName = imageName
	return nil
}

func mustNewGallery(t *testing.T, store BlobLister, manifests ManifestReader, cascade bool) *GalleryService {
	t.Helper()
	s, err := NewGalleryService(store, manifests, cascade)
	require.NoError(t, err)
	return s
}

func TestNewGalleryService_Validation(t *testing.T) {
	_, err := NewGalleryService(nil, &stubReader{}, false)
	require.Error(t, err)
	_, err = NewGalleryService(&stubLister{}, nil, false)
	require.Error(t, err)
}

func TestList_JoinsManifestAndFiltersReservedKey(t *testing.T) {
	store := &stubLister{keys: []string{
		"images/alice/1.jpg",
		"images/alice/main.json",
		"images/alice/2.jpg",
	}}
	manifests := &stubReader{manifest: domain.Manifest{Images: []domain.ScanRecord{
		{ImageName: "2.jpg", OcrText: "Hello World", Summary: "A greeting."},
		{ImageName: "gone.jpg", OcrText: "orphan", Summary: "orphan"},
	}}}
	s := mustNewGallery(t, store, manifests, false)

	items, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "images/alice/", store.lastPrefix)
	require.Len(t, items, 2)

	require.Equal(t, domain.ScanItem{
		ID:       1,
		Key:      "images/alice/1.jpg",
		ImageURL: "https://scan-bucket.s3.eu-central-1.amazonaws.com/images/alice/1.jpg",
		Name:     "1.jpg",
	}, items[0], "unmatched scan has no OCR or summary text")

	require.Equal(t, 2, items[1].ID)
	require.Equal(t, "2.jpg", items[1].Name)
	require.Equal(t, "Hello World", items[1].OcrText)
	require.Equal(t, "A greeting.", items[1].Summary)
}

func TestList_OrphanedManifestRecordsAreDropped(t *testing.T) {
	store := &stubLister{keys: []string{"images/alice/main.json"}}
	manifests := &stubReader{manifest: domain.Manifest{Images: []domain.ScanRecord{
		{ImageName: "deleted.jpg", OcrText: "unreachable"},
	}}}
	s := mustNewGallery(t, store, manifests, false)

	items, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Empty(t, items, "the join is listing-driven; manifest-only records never surface")
}

func TestList_EmptyUser(t *testing.T) {
	s := mustNewGallery(t, &stubLister{}, &stubReader{}, false)
	_, err := s.List(context.Background(), " ")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
}

func TestList_StorageErrorPropagates(t *testing.T) {
	s := mustNewGallery(t, &stubLister{listErr: errors.New("timeout")}, &stubReader{}, false)
	_, err := s.List(context.Background(), "alice")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInternal, ucErr.Code)
	require.Equal(t, "storage_list_error", ucErr.Reason)
}

func TestList_ManifestErrorPropagates(t *testing.T) {
	s := mustNewGallery(t, &stubLister{}, &stubReader{readErr: errors.New("timeout")}, false)
	_, err := s.List(context.Background(), "alice")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, "manifest_read_error", ucErr.Reason)
}

func TestDelete_DefaultLeavesManifestRecord(t *testing.T) {
	store := &stubLister{}
	manifests := &stubReader{}
	s := mustNewGallery(t, store, manifests, false)

	require.NoError(t, s.Delete(context.Background(), "alice", "images/alice/1.jpg"))
	require.Equal(t, "images/alice/1.jpg", store.deletedKey)
	require.Empty(t, manifests.removedName, "manifest record is retained, orphaned")
}

func TestDelete_CascadeRemovesManifestRecord(t *testing.T) {
	store := &stubLister{}
	manifests := &stubReader{}
	s := mustNewGallery(t, store, manifests, true)

	require.NoError(t, s.Delete(context.Background(), "alice", "images/alice/1.jpg"))
	require.Equal(t, "images/alice/1.jpg", store.deletedKey)
	require.Equal(t, "alice", manifests.removedUser)
	require.Equal(t, "1.jpg", manifests.removedName)
}

func TestDelete_InvalidInput(t *testing.T) {
	s := mustNewGallery(t, &stubLister{}, &stubReader{}, false)
	ctx := context.Background()

	cases := []struct {
		name string
		user string
		key  string
	}{
		{name: "empty user", user: " ", key: "images/alice/1.jpg"},
		{name: "empty key", user: "alice", key: " "},
		{name: "foreign prefix", user: "alice", key: "images/bob/1.jpg"},
		{name: "reserved manifest key", user: "alice", key: "images/alice/main.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Delete(ctx, tc.user, tc.key)
			var ucErr *Error
			require.ErrorAs(t, err, &ucErr)
			require.Equal(t, ErrorInvalidInput, ucErr.Code)
		})
	}
}

func TestDelete_StorageErrorPropagates(t *testing.T) {
	s := mustNewGallery(t, &stubLister{deleteErr: errors.New("access denied")}, &stubReader{}, false)
	err := s.Delete(context.Background(), "alice", "images/alice/1.jpg")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, "storage_delete_error", ucErr.Reason)
}

func TestDelete_CascadeRemoveErrorPropagates(t *testing.T) {
	s := mustNewGallery(t, &stubLister{}, &stubReader{removeErr: errors.New("503")}, true)
	err := s.Delete(context.Background(), "alice", "images/alice/1.jpg")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, "manifest_remove_error", ucErr.Reason)
}
