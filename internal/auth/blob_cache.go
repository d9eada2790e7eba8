package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

const blobCacheMaxAttempts = 5

// blobCache stores the token in a Cloud Storage object. Writes use the
// object generation as a precondition so two concurrent runs cannot
// silently clobber each other's refresh token; on a precondition failure
// the write is retried against the latest generation.
type blobCache struct {
	client *storage.Client
	bucket string
	object string
}

// NewBlobCache creates a Cloud Storage backed token cache.
func NewBlobCache(ctx context.Context, bucket, object string) (TokenCache, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &blobCache{client: client, bucket: bucket, object: object}, nil
}

func (c *blobCache) Load(ctx context.Context) (*oauth2.Token, error) {
	reader, err := c.client.Bucket(c.bucket).Object(c.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open token object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read token object: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode cached token: %w", err)
	}
	return &token, nil
}

func (c *blobCache) Save(ctx context.Context, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= blobCacheMaxAttempts; attempt++ {
		obj := c.client.Bucket(c.bucket).Object(c.object)

		attrs, err := obj.Attrs(ctx)
		switch {
		case errors.Is(err, storage.ErrObjectNotExist):
			obj = obj.If(storage.Conditions{DoesNotExist: true})
		case err != nil:
			return fmt.Errorf("failed to read token object attributes: %w", err)
		default:
			obj = obj.If(storage.Conditions{GenerationMatch: attrs.Generation})
		}

		writer := obj.NewWriter(ctx)
		writer.ContentType = "application/json"
		if _, err := writer.Write(data); err != nil {
			writer.Close()
			return fmt.Errorf("failed to write token object: %w", err)
		}
		err = writer.Close()
		if err == nil {
			return nil
		}
		if !isPreconditionFailed(err) {
			return fmt.Errorf("failed to write token object: %w", err)
		}
		// Another process updated the object; re-read the generation and
		// try again.
		lastErr = err
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	return fmt.Errorf("token object write kept conflicting after %d attempts: %w", blobCacheMaxAttempts, lastErr)
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}
