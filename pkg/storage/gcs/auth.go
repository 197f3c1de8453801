package gcs

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	storageScope    = "https://www.googleapis.com/auth/devstorage.read_write"
	metadataURL     = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"

	refreshMargin = time.Minute
)

type fetchFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// tokenCache reuses an access token until it is about to expire.
type tokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  fetchFunc
}

func (t *tokenCache) get(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Until(t.expiry) > refreshMargin {
		return t.token, nil
	}
	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch gcs token: %w", err)
	}
	t.token, t.expiry = token, expiry
	return token, nil
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// serviceAccountTokens exchanges an RS256 signed assertion for access tokens
// (the OAuth 2.0 JWT bearer grant).
func serviceAccountTokens(client *http.Client, credentialsJSON string) (*tokenCache, error) {
	var sa serviceAccount
	if err := json.Unmarshal([]byte(credentialsJSON), &sa); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	return &tokenCache{fetch: func(ctx context.Context) (string, time.Time, error) {
		assertion, err := signAssertion(sa, key, time.Now())
		if err != nil {
			return "", time.Time{}, err
		}
		form := url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {assertion},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return exchange(client, req)
	}}, nil
}

func signAssertion(sa serviceAccount, key *rsa.PrivateKey, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": storageScope,
		"aud":   sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

// metadataTokens reads the attached service account's token from the GCE
// metadata server.
func metadataTokens(client *http.Client) *tokenCache {
	return &tokenCache{fetch: func(ctx context.Context) (string, time.Time, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Metadata-Flavor", "Google")
		return exchange(client, req)
	}}
}

func exchange(client *http.Client, req *http.Request) (string, time.Time, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token request to %s returned %s", req.URL.Host, resp.Status)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", time.Time{}, errors.New("token response without access_token")
	}
	return body.AccessToken, time.Now().Add(time.Duration(body.ExpiresIn) * time.Second), nil
}
