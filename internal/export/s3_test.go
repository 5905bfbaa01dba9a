package export

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	key  string
	body []byte
	err  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	return &PresignedRequest{URL: "https://bucket.test/" + aws.ToString(in.Key) + "?sig=x"}, nil
}

func TestS3SinkStore(t *testing.T) {
	objects := &fakeObjects{}
	sink := &S3Sink{objects: objects, presigner: fakePresigner{}, bucket: "b", prefix: "prod", logger: logger.NewNopLogger()}

	loc, err := sink.Store(context.Background(), "ten_1", "exp_1", []byte(`{"tenant":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "prod/tenants/ten_1/exports/exp_1.json", objects.key)
	assert.Equal(t, `{"tenant":{}}`, string(objects.body))
	assert.Contains(t, loc.URL, "exp_1.json")
}

func TestS3SinkUploadFailure(t *testing.T) {
	sink := &S3Sink{objects: &fakeObjects{err: errors.New("denied")}, presigner: fakePresigner{}, bucket: "b", logger: logger.NewNopLogger()}
	_, err := sink.Store(context.Background(), "ten_1", "exp_1", []byte(`{}`))
	assert.Error(t, err)
}

func TestInlineSink(t *testing.T) {
	loc, err := InlineSink{}.Store(context.Background(), "ten_1", "exp_1", nil)
	assert.NoError(t, err)
	assert.Nil(t, loc)
}
