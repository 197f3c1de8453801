package gcs

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func fixedTokens() *tokenCache {
	return &tokenCache{fetch: func(context.Context) (string, time.Time, error) {
		return "token", time.Now().Add(time.Hour), nil
	}}
}

func testClient(fn roundTripFunc) *Client {
	return &Client{
		http:      &http.Client{Transport: fn},
		tokens:    fixedTokens(),
		bucket:    "krc-photos",
		apiBase:   "https://gcs.test",
		publicURL: "https://cdn.example.com",
	}
}

func reply(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	var captured *http.Request
	var payload []byte
	client := testClient(func(req *http.Request) *http.Response {
		captured = req
		payload, _ = io.ReadAll(req.Body)
		return reply(http.StatusOK, `{"name":"guest-onboarding/user-photo-1.png"}`)
	})

	link, err := client.Upload(context.Background(), "/guest-onboarding/user-photo-1.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/krc-photos/guest-onboarding/user-photo-1.png", link)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/upload/storage/v1/b/krc-photos/o", captured.URL.Path)
	assert.Equal(t, "media", captured.URL.Query().Get("uploadType"))
	assert.Equal(t, "guest-onboarding/user-photo-1.png", captured.URL.Query().Get("name"))
	assert.Equal(t, "Bearer token", captured.Header.Get("Authorization"))
	assert.Equal(t, "image/png", captured.Header.Get("Content-Type"))
	assert.Equal(t, []byte("png-bytes"), payload)
}

func TestUploadFailureIncludesBody(t *testing.T) {
	t.Parallel()

	client := testClient(func(*http.Request) *http.Response {
		return reply(http.StatusForbidden, "permission denied")
	})
	_, err := client.Upload(context.Background(), "a.png", "image/png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "a.png")
}

func TestUploadValidatesInput(t *testing.T) {
	t.Parallel()

	client := testClient(func(*http.Request) *http.Response {
		t.Error("no request expected")
		return reply(http.StatusOK, "")
	})
	cases := map[string]struct {
		object, contentType string
		data                []byte
	}{
		"missing object":       {"  ", "image/png", []byte("x")},
		"missing content type": {"a.png", "", []byte("x")},
		"empty data":           {"a.png", "image/png", nil},
	}
	for name, tc := range cases {
		_, err := client.Upload(context.Background(), tc.object, tc.contentType, tc.data)
		assert.Error(t, err, name)
	}

	var nilClient *Client
	_, err := nilClient.Upload(context.Background(), "a.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestPing(t *testing.T) {
	t.Parallel()

	client := testClient(func(req *http.Request) *http.Response {
		assert.Equal(t, "/storage/v1/b/krc-photos/o", req.URL.Path)
		assert.Equal(t, "1", req.URL.Query().Get("maxResults"))
		return reply(http.StatusOK, `{"items":[]}`)
	})
	assert.NoError(t, client.Ping(context.Background()))

	denied := testClient(func(*http.Request) *http.Response { return reply(http.StatusNotFound, "") })
	assert.Error(t, denied.Ping(context.Background()))
}

func TestPublicURLEscapesSegments(t *testing.T) {
	t.Parallel()

	client := &Client{bucket: "krc-photos"}
	assert.Equal(t, "https://storage.googleapis.com/krc-photos/a%20b/c.png", client.PublicURL("a b/c.png"))
}

func TestTokenCacheReusesToken(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := &tokenCache{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "tok", time.Now().Add(time.Hour), nil
	}}
	for range 3 {
		tok, err := cache.get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok", tok)
	}
	assert.Equal(t, 1, calls)

	cache.expiry = time.Now().Add(30 * time.Second)
	_, err := cache.get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestServiceAccountTokens(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	var assertion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))
		assertion = r.PostForm.Get("assertion")
		_, _ = w.Write([]byte(`{"access_token":"ya29.token","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)

	creds := `{"client_email":"krc@project.iam.gserviceaccount.com","token_uri":"` + server.URL + `","private_key":` + quote(pemKey) + `}`
	cache, err := serviceAccountTokens(server.Client(), creds)
	require.NoError(t, err)

	tok, err := cache.get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", tok)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(assertion, claims, func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "krc@project.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(t, storageScope, claims["scope"])
}

func TestServiceAccountTokensRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	for _, creds := range []string{
		`not json`,
		`{"client_email":""}`,
		`{"client_email":"a@b","private_key":"not a key"}`,
	} {
		_, err := serviceAccountTokens(http.DefaultClient, creds)
		assert.Error(t, err, creds)
	}
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`).Replace(s) + `"`
}

func TestErrorsAreGoogleAPIErrors(t *testing.T) {
	t.Parallel()

	client := testClient(func(*http.Request) *http.Response {
		return reply(http.StatusForbidden, `{"error":{"code":403,"message":"krc-api does not have storage.objects.create access"}}`)
	})
	_, err := client.Upload(context.Background(), "a.png", "image/png", []byte("x"))

	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
	assert.Contains(t, apiErr.Message, "storage.objects.create")
}

func TestPingReportsMissingBucket(t *testing.T) {
	t.Parallel()

	client := testClient(func(*http.Request) *http.Response { return reply(http.StatusNotFound, "") })
	assert.EqualError(t, client.Ping(context.Background()), `bucket "krc-photos" does not exist`)
}
