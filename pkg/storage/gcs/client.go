// Package gcs uploads onboarding photos to a Cloud Storage bucket over the
// JSON API.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	pingTimeout    = 5 * time.Second
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client writes objects into a single bucket.
type Client struct {
	http      *http.Client
	tokens    *tokenCache
	bucket    string
	apiBase   string
	publicURL string
	logg      *logger.Logger
}

// NewClient picks credentials in order: inline JSON, a key file, then the
// metadata server. The bucket must be listable by the caller.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	creds := gcp.CredentialsJSON
	if creds == "" && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		creds = string(raw)
	}
	tokens := metadataTokens(httpClient)
	if creds != "" {
		var err error
		if tokens, err = serviceAccountTokens(httpClient, creds); err != nil {
			return nil, err
		}
	}

	c := &Client{
		http:      httpClient,
		tokens:    tokens,
		bucket:    cfg.BucketName,
		apiBase:   defaultAPIBase,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logg:      logg,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return c, nil
}

// Ping lists at most one object, which needs storage.objects.list.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o?maxResults=1"
	_, err := c.call(ctx, http.MethodGet, endpoint, "", nil)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("bucket %q does not exist", c.bucket)
	}
	return err
}

// Upload stores data under object with a simple media upload and returns the
// public URL of the object.
func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) (string, error) {
	if c == nil || c.tokens == nil {
		return "", errNotInitialized
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	switch {
	case object == "":
		return "", errors.New("object name is required")
	case contentType == "":
		return "", errors.New("content type is required")
	case len(data) == 0:
		return "", errors.New("object data is empty")
	}

	query := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := c.apiBase + "/upload/storage/v1/b/" + url.PathEscape(c.bucket) + "/o?" + query.Encode()
	if _, err := c.call(ctx, http.MethodPost, endpoint, contentType, data); err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// PublicURL is where object can be read from, with each path segment escaped.
func (c *Client) PublicURL(object string) string {
	base := defaultAPIBase
	if c.publicURL != "" {
		base = c.publicURL
	}
	segments := strings.Split(object, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return base + "/" + url.PathEscape(c.bucket) + "/" + strings.Join(segments, "/")
}

// call performs an authorized request and drains the body. Non-2xx answers
// become *googleapi.Error values.
func (c *Client) call(ctx context.Context, method, endpoint, contentType string, body []byte) (int, error) {
	token, err := c.tokens.get(ctx)
	if err != nil {
		return 0, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil && c.logg != nil {
			c.logg.Warn(ctx, "gcs: closing response body: "+cerr.Error())
		}
	}()

	if err := googleapi.CheckResponse(resp); err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, nil
}
