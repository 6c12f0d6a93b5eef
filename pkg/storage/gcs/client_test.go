package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func staticToken() *tokenCache {
	return newTokenCache(func(context.Context) (accessToken, error) {
		return accessToken{value: "token", expiry: time.Now().Add(time.Hour)}, nil
	})
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	var gotBody string
	client := &Client{
		bucket: "invoices-bucket",
		tokens: staticToken(),
		httpClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) *http.Response {
			if req.Method != http.MethodPost {
				t.Fatalf("expected POST, got %s", req.Method)
			}
			if req.URL.Path != "/upload/storage/v1/b/invoices-bucket/o" {
				t.Fatalf("unexpected path %s", req.URL.Path)
			}
			if got := req.URL.Query().Get("name"); got != "invoices/negotiation/RE-X1-202542.pdf" {
				t.Fatalf("unexpected object name %q", got)
			}
			if req.Header.Get("Authorization") != "Bearer token" {
				t.Fatalf("unexpected auth %s", req.Header.Get("Authorization"))
			}
			if req.Header.Get("Content-Type") != "application/pdf" {
				t.Fatalf("unexpected content type %s", req.Header.Get("Content-Type"))
			}
			b, _ := io.ReadAll(req.Body)
			gotBody = string(b)
			return response(http.StatusOK, `{"name":"invoices/negotiation/RE-X1-202542.pdf"}`)
		})},
	}

	url, err := client.Upload(context.Background(), []byte("%PDF-1.4"), "invoices/negotiation/RE-X1-202542.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotBody != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if url != "https://storage.googleapis.com/invoices-bucket/invoices/negotiation/RE-X1-202542.pdf" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestUploadFailureStatus(t *testing.T) {
	t.Parallel()

	client := &Client{
		bucket: "bucket",
		tokens: staticToken(),
		httpClient: &http.Client{Transport: roundTripFunc(func(*http.Request) *http.Response {
			return response(http.StatusForbidden, "denied")
		})},
	}

	_, err := client.Upload(context.Background(), []byte("data"), "key.pdf", "application/pdf")
	if err == nil {
		t.Fatal("expected error on forbidden upload")
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected body in error, got %v", err)
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusForbidden {
		t.Fatalf("expected googleapi 403, got %v", err)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	t.Parallel()

	client := &Client{bucket: "bucket", tokens: staticToken(), httpClient: http.DefaultClient}
	if _, err := client.Upload(context.Background(), []byte("data"), " ", "application/pdf"); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := client.Upload(context.Background(), nil, "key.pdf", "application/pdf"); err == nil {
		t.Fatal("expected error for empty data")
	}
	var nilClient *Client
	if _, err := nilClient.Upload(context.Background(), []byte("data"), "key.pdf", ""); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	client := &Client{bucket: "bucket", publicBaseURL: "https://files.example.com"}
	raw := client.ObjectURL("invoices/negotiation/RE-1.pdf")

	if got := client.PublicURL(raw); got != "https://files.example.com/invoices/negotiation/RE-1.pdf" {
		t.Fatalf("unexpected public url %s", got)
	}
	if got := client.PublicURL("https://other.example.com/x.pdf"); got != "https://other.example.com/x.pdf" {
		t.Fatalf("foreign url should be unchanged, got %s", got)
	}

	plain := &Client{bucket: "bucket"}
	if got := plain.PublicURL(raw); got != raw {
		t.Fatalf("expected unchanged url without public host, got %s", got)
	}
}
