package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"scansum/internal/integrations/openai"
	"scansum/internal/integrations/paramstore"
	"scansum/internal/integrations/vision"
	"scansum/internal/manifest"
	"scansum/internal/storage"
	"scansum/internal/usecase"
)

// services bundles the wired-up use cases for the CLI commands.
type services struct {
	ingest  *usecase.IngestService
	gallery *usecase.GalleryService
}

// buildServices wires storage, paramstore, and the service clients from the
// environment. Same configuration surface as the Lambda entry point.
func buildServices(ctx context.Context) (*services, error) {
	bucket := os.Getenv("BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("BUCKET_NAME is not set")
	}
	paramPrefix := os.Getenv("PARAM_PREFIX")
	if paramPrefix == "" {
		return nil, fmt.Errorf("PARAM_PREFIX is not set")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is not set")
	}
	maxTokens := 150
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxTokens = n
		}
	}
	cascadeDelete := strings.EqualFold(os.Getenv("CASCADE_DELETE"), "true")

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	store, err := storage.New(awss3.NewFromConfig(cfg), bucket, cfg.Region)
	if err != nil {
		return nil, err
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		return nil, err
	}

	var ocrOpts []vision.Option
	if u := os.Getenv("VISION_BASE_URL"); u != "" {
		ocrOpts = append(ocrOpts, vision.WithBaseURL(u))
	}
	ocrClient, err := vision.NewClient(ssmClient, paramPrefix, ocrOpts...)
	if err != nil {
		return nil, err
	}

	var llmOpts []openai.Option
	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(u))
	}
	llmClient, err := openai.NewClient(ssmClient, paramPrefix, llmOpts...)
	if err != nil {
		return nil, err
	}

	manifests, err := manifest.New(store)
	if err != nil {
		return nil, err
	}

	ingestService, err := usecase.NewIngestService(store, manifests, ocrClient, llmClient, model, maxTokens)
	if err != nil {
		return nil, err
	}
	galleryService, err := usecase.NewGalleryService(store, manifests, cascadeDelete)
	if err != nil {
		return nil, err
	}

	return &services{ingest: ingestService, gallery: galleryService}, nil
}

// resolveUser prefers the --user flag and falls back to SCANSUM_USER.
func resolveUser(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue), nil
	}
	if v := strings.TrimSpace(os.Getenv("SCANSUM_USER")); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no user given: pass --user or set SCANSUM_USER")
}
