package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nishacrest/Beta-test-sub001/api/responses"
	"github.com/nishacrest/Beta-test-sub001/api/validators"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	pkgredis "github.com/nishacrest/Beta-test-sub001/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayedHeader        = "Idempotent-Replayed"
	maxIdempotencyKeyLen  = 255
	defaultIdempotencyTTL = 24 * time.Hour
	invoiceIdempotencyTTL = 7 * 24 * time.Hour
)

// Invoice uploads are the largest bodies that pass through here.
const maxIdempotentBody = validators.MaxInvoiceUpload + 1<<20

// idempotencyRule matches a concrete request path by prefix and suffix. Middleware
// on a sub-router only sees a partial route pattern, so rules never use patterns.
type idempotencyRule struct {
	method string
	prefix string
	suffix string
	exact  bool
	ttl    time.Duration
}

func (r idempotencyRule) matches(method, path string) bool {
	if r.method != method {
		return false
	}
	if r.exact {
		return path == r.prefix
	}
	return strings.HasPrefix(path, r.prefix) && strings.HasSuffix(path, r.suffix) && len(path) > len(r.prefix)+len(r.suffix)
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, prefix: "/api/admin/v1/shops/", suffix: "/negotiation-invoices", ttl: invoiceIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/shops/", suffix: "/payment-invoices", ttl: invoiceIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/redemptions", exact: true, ttl: defaultIdempotencyTTL},
	{method: http.MethodPatch, prefix: "/api/admin/v1/redemptions/", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/purchases", exact: true, ttl: defaultIdempotencyTTL},
}

// storedResponse is what a replay writes back. Bodies are base64 so multipart
// and JSON payloads survive the JSON envelope unchanged.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	Location    string `json:"location,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response when a settlement write is retried with
// the same Idempotency-Key and body. Listed writes must carry the header. Responses
// of 500 and above are not stored, so a failed attempt can be retried.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, requestPath(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			switch {
			case clientKey == "":
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			case len(clientKey) > maxIdempotencyKeyLen:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(r.Method+"|"+requestPath(r), clientKey)

			prior, err := lookup(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != nil {
				if prior.RequestHash != requestHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				if logg != nil {
					logg.Info(logg.WithField(ctx, "idempotency_key", clientKey), "idempotency.replayed")
				}
				replay(w, prior)
				return
			}

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.statusCode() >= http.StatusInternalServerError {
				return
			}
			remember(ctx, store, logg, key, ttl, storedResponse{
				Status:      capture.statusCode(),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				ContentType: capture.Header().Get("Content-Type"),
				Location:    capture.Header().Get("Location"),
				RequestHash: requestHash,
			})
		})
	}
}

func lookup(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// remember keeps the first stored response. A concurrent twin that finished first wins.
func remember(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string, ttl time.Duration, stored storedResponse) {
	payload, err := json.Marshal(stored)
	if err != nil {
		logError(ctx, logg, "idempotency.encode_failed", err)
		return
	}
	if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil {
		logError(ctx, logg, "idempotency.persist_failed", err)
	}
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	if stored.Location != "" {
		w.Header().Set("Location", stored.Location)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(stored.Status)
	if body, err := base64.StdEncoding.DecodeString(stored.Body); err == nil {
		_, _ = w.Write(body)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// requestPath is the concrete path without a trailing slash.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	path := r.URL.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.matches(method, path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
