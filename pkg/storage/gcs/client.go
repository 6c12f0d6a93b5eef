// Package gcs stores invoice documents in a Google Cloud Storage bucket through the
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
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
)

const (
	storageHost        = "https://storage.googleapis.com"
	pingTimeout        = 5 * time.Second
	defaultContentType = "application/octet-stream"
)

// Client uploads objects to one bucket and maps their URLs onto the public host.
type Client struct {
	httpClient    *http.Client
	bucket        string
	publicBaseURL string
	uploadTimeout time.Duration
	endpoint      string
	tokens        *tokenCache
}

// NewClient resolves credentials and verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	tokens, err := credentialsFromConfig(gcp, httpClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:    httpClient,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		uploadTimeout: cfg.UploadTimeout,
		endpoint:      storageHost,
		tokens:        tokens,
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"bucket":      bucket,
			"gcp_project": gcp.ProjectID,
		}), "gcs client initialized")
	}
	return client, nil
}

// Close exists so the client can be released alongside the other backends.
func (c *Client) Close() error {
	return nil
}

// Ping reads the bucket metadata with the client's credentials.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s?fields=name", c.baseURL(), url.PathEscape(c.bucket))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("gcs bucket check failed", resp)
	}
	return nil
}

// Upload stores data under key and returns the storage URL of the object.
func (c *Client) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	if len(data) == 0 {
		return "", errors.New("object data is empty")
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	if c.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.uploadTimeout)
		defer cancel()
	}

	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		c.baseURL(), url.PathEscape(c.bucket), url.QueryEscape(key))
	resp, err := c.do(ctx, http.MethodPost, u, data, contentType)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("gcs upload failed", resp)
	}
	return c.ObjectURL(key), nil
}

// ObjectURL returns the storage URL of key.
func (c *Client) ObjectURL(key string) string {
	return storageHost + "/" + c.bucket + "/" + strings.TrimLeft(key, "/")
}

// PublicURL rewrites a storage URL onto the configured public host. URLs on other
// hosts, and every URL when no public host is set, come back unchanged.
func (c *Client) PublicURL(raw string) string {
	if c == nil || c.publicBaseURL == "" {
		return raw
	}
	rest, ok := strings.CutPrefix(raw, storageHost+"/"+c.bucket+"/")
	if !ok {
		return raw
	}
	return c.publicBaseURL + "/" + rest
}

func (c *Client) ready() error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	if c.bucket == "" {
		return errors.New("gcs bucket not configured")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, contentType string) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs credentials: %w", err)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (c *Client) baseURL() string {
	if c.endpoint == "" {
		return storageHost
	}
	return c.endpoint
}

// statusError turns a non-2xx response into a *googleapi.Error prefixed with the
// failed operation. Callers can still reach the HTTP code through errors.As.
func statusError(prefix string, resp *http.Response) error {
	err := googleapi.CheckResponse(resp)
	if err == nil {
		err = fmt.Errorf("unexpected status %s", resp.Status)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
