// Package handler adapts API Gateway proxy events to the scan services.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"scansum/internal/domain"
	"scansum/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// IngestUseCase runs the capture-to-manifest pipeline for one image.
type IngestUseCase interface {
	Ingest(ctx context.Context, in usecase.IngestInput) (usecase.IngestOutput, error)
}

// GalleryUseCase lists and deletes a user's scans.
type GalleryUseCase interface {
	List(ctx context.Context, user string) ([]domain.ScanItem, error)
	Delete(ctx context.Context, user, key string) error
}

type ingestRequest struct {
	User        string `json:"user"`
	ImageBase64 string `json:"imageBase64"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type ingestResponse struct {
	Record domain.ScanRecord `json:"record"`
}

type listResponse struct {
	Scans []domain.ScanItem `json:"scans"`
}

type deleteRequest struct {
	User string `json:"user"`
	Key  string `json:"key"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handler routes proxy events for the /scans resource.
type Handler struct {
	ingest  IngestUseCase
	gallery GalleryUseCase
}

func NewHandler(ingest IngestUseCase, gallery GalleryUseCase) (*Handler, error) {
	if ingest == nil {
		return nil, errors.New("handler: ingest use case must not be nil")
	}
	if gallery == nil {
		return nil, errors.New("handler: gallery use case must not be nil")
	}
	return &Handler{ingest: ingest, gallery: gallery}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)

	var resp events.APIGatewayProxyResponse
	switch {
	case event.HTTPMethod == http.MethodPost && event.Path == "/scans":
		resp = h.handleIngest(ctx, event, corrID)
	case event.HTTPMethod == http.MethodGet && event.Path == "/scans":
		resp = h.handleList(ctx, event, corrID)
	case event.HTTPMethod == http.MethodDelete && event.Path == "/scans":
		resp = h.handleDelete(ctx, event, corrID)
	default:
		resp = errorResp(http.StatusNotFound, usecase.ErrorNotFound, "unknown_route")
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Content-Type"] = "application/json"
	resp.Headers[correlationHeader] = corrID
	return resp, nil
}

func (h *Handler) handleIngest(ctx context.Context, event events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	var req ingestRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorResp(http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_body")
	}
	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return errorResp(http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_image_base64")
	}

	out, err := h.ingest.Ingest(ctx, usecase.IngestInput{
		User:        req.User,
		Image:       image,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		slog.Error("ingest failed", "correlationId", corrID, "err", err)
		return errorRespFromUseCase(err)
	}
	return jsonResp(http.StatusOK, ingestResponse{Record: out.Record})
}

func (h *Handler) handleList(ctx context.Context, event events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	user := event.QueryStringParameters["user"]
	scans, err := h.gallery.List(ctx, user)
	if err != nil {
		slog.Error("list failed", "correlationId", corrID, "err", err)
		return errorRespFromUseCase(err)
	}
	return jsonResp(http.StatusOK, listResponse{Scans: scans})
}

func (h *Handler) handleDelete(ctx context.Context, event events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	var req deleteRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorResp(http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_body")
	}
	if err := h.gallery.Delete(ctx, req.User, req.Key); err != nil {
		slog.Error("delete failed", "correlationId", corrID, "err", err)
		return errorRespFromUseCase(err)
	}
	return jsonResp(http.StatusOK, struct{}{})
}

func errorRespFromUseCase(err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return errorResp(http.StatusInternalServerError, usecase.ErrorInternal, "")
	}
	return errorResp(statusForCode(ucErr.Code), ucErr.Code, ucErr.Reason)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResp(status int, code usecase.ErrorCode, reason string) events.APIGatewayProxyResponse {
	return jsonResp(status, errorResponse{Error: string(code), Reason: reason})
}

func jsonResp(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Body: string(data)}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == correlationHeader && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
