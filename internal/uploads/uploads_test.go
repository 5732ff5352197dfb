package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-listings/claims-backend/config"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://logos.s3.amazonaws.com/" + *params.Key + "?X-Amz-Signature=abc",
		Method: http.MethodPut,
		SignedHeader: http.Header{
			"Host":         {"logos.s3.amazonaws.com"},
			"Content-Type": {*params.ContentType},
		},
	}, nil
}

func testConfig() config.UploadsConfig {
	return config.UploadsConfig{
		Bucket:        "logos",
		Region:        "eu-west-1",
		PublicBaseURL: "https://cdn.example.com/",
		MaxBytes:      1 << 20,
		URLTTL:        5 * time.Minute,
	}
}

func TestPresignLogo(t *testing.T) {
	ctx := context.Background()

	t.Run("issues url under the project prefix", func(t *testing.T) {
		fp := &fakePresigner{}
		svc := NewService(fp, testConfig())

		up, err := svc.PresignLogo(ctx, "p-1", UploadRequest{ContentType: "image/png", Size: 2048})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(up.Key, "projects/p-1/logo-"))
		assert.True(t, strings.HasSuffix(up.Key, ".png"))
		assert.Equal(t, "https://cdn.example.com/"+up.Key, up.PublicURL)
		assert.Equal(t, http.MethodPut, up.Method)
		assert.Equal(t, "image/png", up.Headers["Content-Type"])
		assert.NotContains(t, up.Headers, "Host")
		assert.Equal(t, "logos", *fp.input.Bucket)
		assert.Equal(t, int64(2048), *fp.input.ContentLength)
		assert.Equal(t, 5*time.Minute, fp.expires)
		assert.True(t, svc.IsLogoURL("p-1", up.PublicURL))
		assert.False(t, svc.IsLogoURL("p-2", up.PublicURL))
	})

	t.Run("rejects other content types", func(t *testing.T) {
		_, err := NewService(&fakePresigner{}, testConfig()).PresignLogo(ctx, "p-1", UploadRequest{ContentType: "application/pdf", Size: 10})
		assert.ErrorIs(t, err, ErrUnsupportedContentType)
	})

	t.Run("rejects oversized and empty files", func(t *testing.T) {
		svc := NewService(&fakePresigner{}, testConfig())
		_, err := svc.PresignLogo(ctx, "p-1", UploadRequest{ContentType: "image/jpeg", Size: 2 << 20})
		assert.ErrorIs(t, err, ErrTooLarge)
		_, err = svc.PresignLogo(ctx, "p-1", UploadRequest{ContentType: "image/jpeg"})
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("requires a bucket", func(t *testing.T) {
		cfg := testConfig()
		cfg.Bucket = ""
		_, err := NewService(&fakePresigner{}, cfg).PresignLogo(ctx, "p-1", UploadRequest{ContentType: "image/png", Size: 1})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("wraps presign failures", func(t *testing.T) {
		_, err := NewService(&fakePresigner{err: errors.New("no credentials")}, testConfig()).PresignLogo(ctx, "p-1", UploadRequest{ContentType: "image/png", Size: 1})
		assert.ErrorContains(t, err, "no credentials")
	})
}

func TestPublicURL_DefaultsToBucketHost(t *testing.T) {
	cfg := testConfig()
	cfg.PublicBaseURL = ""
	svc := NewService(&fakePresigner{}, cfg)
	assert.Equal(t, "https://logos.s3.eu-west-1.amazonaws.com/projects/p/logo-x.png", svc.PublicURL("projects/p/logo-x.png"))
}
