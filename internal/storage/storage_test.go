package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"immobile-portal/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestURLMapper(t *testing.T) {
	m := newURLMapper("https://cdn.example.com/bucket/")

	url := m.URL("images/a.jpg")
	assert.Equal(t, "https://cdn.example.com/bucket/images/a.jpg", url)

	key, ok := m.KeyFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "images/a.jpg", key)

	_, ok = m.KeyFromURL("https://elsewhere.example.com/images/a.jpg")
	assert.False(t, ok)
	_, ok = m.KeyFromURL("https://cdn.example.com/bucket/")
	assert.False(t, ok)
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage("http://localhost:8084/files")
	ctx := context.Background()

	url, err := s.Upload(ctx, "images/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8084/files/images/a.png", url)
	assert.True(t, s.Has("images/a.png"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "images/a.png"))
	assert.False(t, s.Has("images/a.png"))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Provider: "ftp"})
	assert.Error(t, err)
}

type mockS3 struct {
	s3iface.S3API
	mock.Mock
}

func (m *mockS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3Storage_Upload(t *testing.T) {
	client := &mockS3{}
	s := newS3Storage(client, "listings", "https://listings.s3.sa-east-1.amazonaws.com")
	ctx := context.Background()

	client.On("PutObjectWithContext", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.StringValue(in.Bucket) == "listings" &&
			aws.StringValue(in.Key) == "images/a.jpg" &&
			aws.StringValue(in.ACL) == s3.ObjectCannedACLPublicRead &&
			aws.StringValue(in.ContentType) == "image/jpeg" &&
			aws.Int64Value(in.ContentLength) == 4
	})).Return(nil).Once()

	url, err := s.Upload(ctx, "images/a.jpg", bytes.NewReader([]byte("jpeg")), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://listings.s3.sa-east-1.amazonaws.com/images/a.jpg", url)
	client.AssertExpectations(t)
}

func TestS3Storage_UploadError(t *testing.T) {
	client := &mockS3{}
	s := newS3Storage(client, "listings", "https://cdn.example.com")
	ctx := context.Background()

	client.On("PutObjectWithContext", ctx, mock.Anything).Return(errors.New("AccessDenied")).Once()

	// a plain reader is buffered before upload
	_, err := s.Upload(ctx, "images/a.jpg", io.MultiReader(strings.NewReader("jpeg")), 4, "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Storage_Delete(t *testing.T) {
	client := &mockS3{}
	s := newS3Storage(client, "listings", "https://cdn.example.com")
	ctx := context.Background()

	client.On("DeleteObjectWithContext", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.StringValue(in.Key) == "images/a.jpg"
	})).Return(nil).Once()

	require.NoError(t, s.Delete(ctx, "images/a.jpg"))
	client.AssertExpectations(t)
}
