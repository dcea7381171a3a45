package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/auction-archive/pkg/storage"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	objects   map[string][]byte
	types     map[string]string
	headErr   error
	deleteErr error
	bucketErr error
}

func newStubAPI() *stubAPI {
	return &stubAPI{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *stubAPI) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.objects[*in.Key] = data
	s.types[*in.Key] = *in.ContentType
	return &awss3.PutObjectOutput{}, nil
}

func (s *stubAPI) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	if s.headErr != nil {
		return nil, s.headErr
	}
	if _, ok := s.objects[*in.Key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func (s *stubAPI) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	delete(s.objects, *in.Key)
	return &awss3.DeleteObjectOutput{}, nil
}

func (s *stubAPI) HeadBucket(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	return &awss3.HeadBucketOutput{}, s.bucketErr
}

func TestStorePutAndDelete(t *testing.T) {
	api := newStubAPI()
	store := newStore(api, "fotos", "https://cdn.example/fotos")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storage.Object{Key: "A/artwork_1.png", ContentType: "image/png", Data: []byte("png")}))
	assert.Equal(t, []byte("png"), api.objects["A/artwork_1.png"])
	assert.Equal(t, "image/png", api.types["A/artwork_1.png"])
	assert.Equal(t, "https://cdn.example/fotos/A/artwork_1.png", store.URL("A/artwork_1.png"))

	require.NoError(t, store.Delete(ctx, "A/artwork_1.png"))
	assert.Empty(t, api.objects)

	err := store.Delete(ctx, "A/artwork_1.png")
	assert.True(t, storage.IsNotFound(err), "expected not found, got %v", err)
}

func TestStoreDeleteReportsBackendErrors(t *testing.T) {
	api := newStubAPI()
	api.headErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	store := newStore(api, "fotos", "")

	err := store.Delete(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, storage.IsNotFound(err))
}

func TestStorePing(t *testing.T) {
	api := newStubAPI()
	store := newStore(api, "fotos", "")
	require.NoError(t, store.Ping(context.Background()))

	api.bucketErr = errors.New("unreachable")
	assert.Error(t, store.Ping(context.Background()))
}
