package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"scansum/handler"
	"scansum/internal/integrations/openai"
	"scansum/internal/integrations/paramstore"
	"scansum/internal/integrations/vision"
	"scansum/internal/manifest"
	"scansum/internal/storage"
	"scansum/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	bucket := mustEnv("BUCKET_NAME")
	paramPrefix := mustEnv("PARAM_PREFIX")
	model := mustEnv("OPENAI_MODEL")
	maxTokens := envInt("OPENAI_MAX_TOKENS", 150)
	cascadeDelete := envBool("CASCADE_DELETE", false)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, err := storage.New(awss3.NewFromConfig(cfg), bucket, cfg.Region)
	if err != nil {
		slog.Error("failed to create storage client", "err", err)
		os.Exit(1)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	var ocrOpts []vision.Option
	if u := os.Getenv("VISION_BASE_URL"); u != "" {
		ocrOpts = append(ocrOpts, vision.WithBaseURL(u))
	}
	ocrClient, err := vision.NewClient(ssmClient, paramPrefix, ocrOpts...)
	if err != nil {
		slog.Error("failed to create vision client", "err", err)
		os.Exit(1)
	}

	var llmOpts []openai.Option
	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(u))
	}
	llmClient, err := openai.NewClient(ssmClient, paramPrefix, llmOpts...)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	manifests, err := manifest.New(store)
	if err != nil {
		slog.Error("failed to create manifest repository", "err", err)
		os.Exit(1)
	}

	// ---- Services ----
	ingestService, err := usecase.NewIngestService(store, manifests, ocrClient, llmClient, model, maxTokens)
	if err != nil {
		slog.Error("failed to create ingest service", "err", err)
		os.Exit(1)
	}
	galleryService, err := usecase.NewGalleryService(store, manifests, cascadeDelete)
	if err != nil {
		slog.Error("failed to create gallery service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(ingestService, galleryService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}
