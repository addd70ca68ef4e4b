package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	putErr       error
	getOut       *s3.GetObjectOutput
	getErr       error
	listOuts     []*s3.ListObjectsV2Output
	listErr      error
	deleteErr    error
	lastPutInput *s3.PutObjectInput
	lastGetInput *s3.GetObjectInput
	lastListIns  []*s3.ListObjectsV2Input
	lastDelInput *s3.DeleteObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPutInput = in
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lastListIns = append(f.lastListIns, in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.listOuts[0]
	f.listOuts = f.listOuts[1:]
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.lastDelInput = in
	return &s3.DeleteObjectOutput{}, f.deleteErr
}

func mustNewClient(t *testing.T, api s3API) *Client {
	t.Helper()
	c, err := New(api, "scan-bucket", "eu-central-1")
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "b", "r")
	require.Error(t, err)
	_, err = New(&fakeS3{}, " ", "r")
	require.Error(t, err)
	_, err = New(&fakeS3{}, "b", "")
	require.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	c := mustNewClient(t, &fakeS3{})
	require.Equal(t,
		"https://scan-bucket.s3.eu-central-1.amazonaws.com/images/alice/1700000000000.jpg",
		c.PublicURL("images/alice/1700000000000.jpg"))
}

func TestPut_HappyPath(t *testing.T) {
	api := &fakeS3{}
	c := mustNewClient(t, api)

	url, err := c.Put(context.Background(), "images/alice/a.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "https://scan-bucket.s3.eu-central-1.amazonaws.com/images/alice/a.jpg", url)

	require.Equal(t, "scan-bucket", *api.lastPutInput.Bucket)
	require.Equal(t, "images/alice/a.jpg", *api.lastPutInput.Key)
	require.Equal(t, "image/jpeg", *api.lastPutInput.ContentType)
	body, err := io.ReadAll(api.lastPutInput.Body)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(body))
}

func TestPut_EmptyKey(t *testing.T) {
	c := mustNewClient(t, &fakeS3{})
	_, err := c.Put(context.Background(), " ", nil, "image/jpeg")
	require.Error(t, err)
}

func TestPut_UpstreamError(t *testing.T) {
	c := mustNewClient(t, &fakeS3{putErr: errors.New("connection reset")})
	_, err := c.Put(context.Background(), "images/alice/a.jpg", nil, "image/jpeg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")
}

func TestGet_HappyPath(t *testing.T) {
	api := &fakeS3{getOut: &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(`{"images":[]}`))}}
	c := mustNewClient(t, api)

	data, err := c.Get(context.Background(), "images/alice/main.json")
	require.NoError(t, err)
	require.Equal(t, `{"images":[]}`, string(data))
	require.Equal(t, "images/alice/main.json", *api.lastGetInput.Key)
}

func TestGet_NoSuchKeyMapsToErrNotFound(t *testing.T) {
	c := mustNewClient(t, &fakeS3{getErr: &types.NoSuchKey{}})
	_, err := c.Get(context.Background(), "images/alice/missing.jpg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_NotFoundMapsToErrNotFound(t *testing.T) {
	c := mustNewClient(t, &fakeS3{getErr: &types.NotFound{}})
	_, err := c.Get(context.Background(), "images/alice/missing.jpg")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_OtherErrorsPassThrough(t *testing.T) {
	c := mustNewClient(t, &fakeS3{getErr: errors.New("timeout")})
	_, err := c.Get(context.Background(), "images/alice/a.jpg")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestList_SinglePage(t *testing.T) {
	api := &fakeS3{listOuts: []*s3.ListObjectsV2Output{{
		Contents: []types.Object{
			{Key: aws.String("images/alice/1.jpg")},
			{Key: aws.String("images/alice/main.json")},
		},
	}}}
	c := mustNewClient(t, api)

	keys, err := c.List(context.Background(), "images/alice/")
	require.NoError(t, err)
	require.Equal(t, []string{"images/alice/1.jpg", "images/alice/main.json"}, keys)
	require.Equal(t, "images/alice/", *api.lastListIns[0].Prefix)
}

func TestList_Paginates(t *testing.T) {
	api := &fakeS3{listOuts: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{{Key: aws.String("images/alice/1.jpg")}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("token-1"),
		},
		{
			Contents: []types.Object{{Key: aws.String("images/alice/2.jpg")}},
		},
	}}
	c := mustNewClient(t, api)

	keys, err := c.List(context.Background(), "images/alice/")
	require.NoError(t, err)
	require.Equal(t, []string{"images/alice/1.jpg", "images/alice/2.jpg"}, keys)
	require.Len(t, api.lastListIns, 2)
	require.Equal(t, "token-1", *api.lastListIns[1].ContinuationToken)
}

func TestDelete_HappyPath(t *testing.T) {
	api := &fakeS3{}
	c := mustNewClient(t, api)
	require.NoError(t, c.Delete(context.Background(), "images/alice/1.jpg"))
	require.Equal(t, "images/alice/1.jpg", *api.lastDelInput.Key)
}

func TestDelete_UpstreamError(t *testing.T) {
	c := mustNewClient(t, &fakeS3{deleteErr: errors.New("access denied")})
	err := c.Delete(context.Background(), "images/alice/1.jpg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access denied")
}
