package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound reports that no blob exists at the requested key. Callers rely
// on distinguishing this from transient failures, so it must survive wrapping.
var ErrNotFound = errors.New("storage: object not found")

// s3API is the minimal S3 interface required by Client.
// Defined here for testability; *s3.Client satisfies it.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore is the blob-store capability set consumed by the manifest
// repository and the gallery. All operations cross a network boundary and are
// not retried here; failures propagate to the caller.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Client wraps an S3 bucket as a flat key-value blob store.
type Client struct {
	api    s3API
	bucket string
	region string
}

// New creates a Client bound to one bucket in one region.
func New(api s3API, bucket, region string) (*Client, error) {
	if api == nil {
		return nil, errors.New("storage: api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket must not be empty")
	}
	if strings.TrimSpace(region) == "" {
		return nil, errors.New("storage: region must not be empty")
	}
	return &Client{api: api, bucket: bucket, region: region}, nil
}

// PublicURL returns the deterministic public URL for a key. No existence
// check is performed; the URL is valid only once the blob is stored.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// Put stores body at key, overwriting any existing blob, and returns the
// blob's public URL.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("storage: key must not be empty")
	}
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %q: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// Get retrieves the blob at key. A missing key is reported as ErrNotFound;
// every other failure is passed through wrapped.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("storage: get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: get %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return data, nil
}

// List returns all keys under prefix in storage-defined order. The reserved
// manifest key is not filtered here; that is the caller's concern.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var continuation *string
	for {
		out, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return keys, nil
}

// Delete removes the blob at key. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
