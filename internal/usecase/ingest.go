package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"scansum/internal/domain"
	"scansum/internal/manifest"
)

const defaultContentType = "image/jpeg"

// ObjectStore is the blob-store surface the ingestion pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ManifestWriter appends processed-scan records to the per-user manifest.
type ManifestWriter interface {
	Append(ctx context.Context, user string, record domain.ScanRecord) (string, error)
}

// OCRClient extracts text from a base64-encoded image.
type OCRClient interface {
	DetectText(ctx context.Context, imageBase64 string) (string, error)
}

// LLMClient submits chat messages to a completion service.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, maxTokens int) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IngestService runs the four-stage scan pipeline: upload, OCR, summarize,
// manifest append. Stages are strictly sequential and each one hard-depends
// on the previous stage's success. Nothing is retried and nothing is rolled
// back: a failure after upload leaves the image blob orphaned in storage.
type IngestService struct {
	store     ObjectStore
	manifests ManifestWriter
	ocr       OCRClient
	llm       LLMClient
	model     string
	maxTokens int
}

type IngestInput struct {
	User string
	// Image is the captured image, raw bytes.
	Image []byte
	// FileName overrides the timestamp-derived default. Must not collide
	// with the reserved manifest name.
	FileName    string
	ContentType string
}

type IngestOutput struct {
	Record domain.ScanRecord
}

func NewIngestService(store ObjectStore, manifests ManifestWriter, ocr OCRClient, llm LLMClient, model string, maxTokens int) (*IngestService, error) {
	if store == nil {
		return nil, errors.New("usecase: object store must not be nil")
	}
	if manifests == nil {
		return nil, errors.New("usecase: manifest writer must not be nil")
	}
	if ocr == nil {
		return nil, errors.New("usecase: ocr client must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	return &IngestService{
		store:     store,
		manifests: manifests,
		ocr:       ocr,
		llm:       llm,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Ingest processes one captured image end to end and returns the record
// appended to the user's manifest.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (IngestOutput, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return IngestOutput{}, newError(ErrorInvalidInput, "empty_user", nil)
	}
	if len(in.Image) == 0 {
		return IngestOutput{}, newError(ErrorInvalidInput, "empty_image", nil)
	}

	now := timeNow().UTC()

	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = fmt.Sprintf("%d.jpg", now.UnixMilli())
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if fileName == manifest.FileName {
		return IngestOutput{}, newError(ErrorInvalidInput, "reserved_file_name", nil)
	}

	key := manifest.UserPrefix(user) + fileName
	imageURL, err := s.store.Put(ctx, key, in.Image, contentType)
	if err != nil {
		return IngestOutput{}, newError(ErrorInternal, "image_upload_error", err)
	}

	ocrText, err := s.ocr.DetectText(ctx, base64.StdEncoding.EncodeToString(in.Image))
	if err != nil {
		return IngestOutput{}, classifyUpstream("ocr", err)
	}

	// empty OCR text is still summarized; the record carries ocrText: ""
	summary, err := s.llm.Chat(ctx, s.model, buildSummaryMessages(ocrText), s.maxTokens)
	if err != nil {
		return IngestOutput{}, classifyUpstream("summarize", err)
	}

	record := domain.ScanRecord{
		ImageURL:  imageURL,
		ImageName: fileName,
		OcrText:   ocrText,
		Summary:   summary,
		Timestamp: now.Format(time.RFC3339),
	}
	if _, err := s.manifests.Append(ctx, user, record); err != nil {
		return IngestOutput{}, newError(ErrorInternal, "manifest_append_error", err)
	}

	return IngestOutput{Record: record}, nil
}

// classifyUpstream maps service failures to the error taxonomy, surfacing
// 429s distinctly so callers can signal back-off.
func classifyUpstream(stage string, err error) *Error {
	if status, ok := upstreamStatusCode(err); ok && status == 429 {
		return newError(ErrorRateLimited, stage+"_rate_limited", err)
	}
	return newError(ErrorUpstream, stage+"_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var timeNow = time.Now
