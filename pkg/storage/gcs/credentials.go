package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nishacrest/Beta-test-sub001/pkg/config"
)

const (
	defaultTokenURI  = "https://oauth2.googleapis.com/token"
	metadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	storageScope     = "https://www.googleapis.com/auth/devstorage.read_write"
	jwtBearerGrant   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	refreshMargin    = time.Minute
)

type accessToken struct {
	value  string
	expiry time.Time
}

func (t accessToken) fresh(now time.Time) bool {
	return t.value != "" && t.expiry.Sub(now) > refreshMargin
}

// tokenCache hands out a cached bearer token and collapses concurrent refreshes
// into one request.
type tokenCache struct {
	mu      sync.RWMutex
	current accessToken
	group   singleflight.Group
	fetch   func(context.Context) (accessToken, error)
}

func newTokenCache(fetch func(context.Context) (accessToken, error)) *tokenCache {
	return &tokenCache{fetch: fetch}
}

func (c *tokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()
	if current.fresh(time.Now()) {
		return current.value, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		tok, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = tok
		c.mu.Unlock()
		return tok.value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// credentialsFromConfig picks inline JSON, then a key file, then the metadata server.
func credentialsFromConfig(gcp config.GCPConfig, httpClient *http.Client) (*tokenCache, error) {
	raw := strings.TrimSpace(gcp.CredentialsJSON)
	if raw == "" && gcp.ApplicationCredentials != "" {
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = string(b)
	}
	if raw == "" {
		return newTokenCache(func(ctx context.Context) (accessToken, error) {
			return metadataToken(ctx, httpClient)
		}), nil
	}
	sa, err := parseServiceAccount(raw)
	if err != nil {
		return nil, err
	}
	return newTokenCache(func(ctx context.Context) (accessToken, error) {
		return sa.token(ctx, httpClient)
	}), nil
}

type serviceAccount struct {
	email    string
	key      *rsa.PrivateKey
	tokenURI string
}

func parseServiceAccount(raw string) (*serviceAccount, error) {
	var file struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if file.ClientEmail == "" || file.PrivateKey == "" {
		return nil, errors.New("service account credentials need client_email and private_key")
	}
	key, err := parseRSAKey(file.PrivateKey)
	if err != nil {
		return nil, err
	}
	tokenURI := file.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	return &serviceAccount{email: file.ClientEmail, key: key, tokenURI: tokenURI}, nil
}

func (sa *serviceAccount) assertion(now time.Time) (string, error) {
	claims, err := json.Marshal(map[string]any{
		"iss":   sa.email,
		"scope": storageScope,
		"aud":   sa.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc.EncodeToString(claims)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, sa.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing token assertion: %w", err)
	}
	return signingInput + "." + enc.EncodeToString(sig), nil
}

func (sa *serviceAccount) token(ctx context.Context, httpClient *http.Client) (accessToken, error) {
	assertion, err := sa.assertion(time.Now())
	if err != nil {
		return accessToken{}, err
	}
	form := url.Values{"grant_type": {jwtBearerGrant}, "assertion": {assertion}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return accessToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return exchange(httpClient, req)
}

func metadataToken(ctx context.Context, httpClient *http.Client) (accessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataTokenURL, nil)
	if err != nil {
		return accessToken{}, err
	}
	req.Header.Set("Metadata-Flavor", "Google")
	return exchange(httpClient, req)
}

// exchange performs a token request and decodes the OAuth2 token response.
func exchange(httpClient *http.Client, req *http.Request) (accessToken, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return accessToken{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return accessToken{}, statusError("token request failed", resp)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return accessToken{}, fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return accessToken{}, errors.New("token response carried no access token")
	}
	return accessToken{
		value:  body.AccessToken,
		expiry: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}

func parseRSAKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("unsupported private key format")
	}
	return key, nil
}
