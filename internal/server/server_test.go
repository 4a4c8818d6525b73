// internal/server/server_test.go
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/maskd/internal/config"
	"github.com/fyrsmithlabs/maskd/internal/logging"
	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

func newTestServer(t *testing.T, mutate func(*config.ServerConfig)) (*Server, *logging.TestLogger) {
	t.Helper()

	engine, err := masker.New(nil)
	require.NoError(t, err)

	cfg := config.NewDefaultConfig().Server
	if mutate != nil {
		mutate(&cfg)
	}

	tl := logging.NewTestLogger()
	srv, err := NewServer(masker.NewLogged(engine), tl.Logger, &cfg)
	require.NoError(t, err)
	return srv, tl
}

func doJSON(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func TestNewServer_Validation(t *testing.T) {
	tl := logging.NewTestLogger()

	_, err := NewServer(nil, tl.Logger, nil)
	assert.Error(t, err)

	engine, err := masker.New(nil)
	require.NoError(t, err)
	_, err = NewServer(masker.NewLogged(engine), nil, nil)
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleMask(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.masker.AddValue("supersecret123", "test")

	rec := doJSON(srv, http.MethodPost, "/v1/mask",
		`{"inputs": ["token is supersecret123", "clean line"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Outputs, 2)
	assert.Equal(t, "token is ***", resp.Outputs[0])
	assert.Equal(t, "clean line", resp.Outputs[1])
	assert.Equal(t, 1, resp.Changed)
}

func TestHandleMask_ChangedCountsInputsNotMatches(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.masker.AddValue("supersecret123", "test")

	// One input with two occurrences still counts as a single changed input,
	// and the wire field is named "changed".
	rec := doJSON(srv, http.MethodPost, "/v1/mask",
		`{"inputs": ["supersecret123 and supersecret123 again"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Contains(t, raw, "changed")

	var resp MaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Changed)
	assert.Equal(t, "*** and *** again", resp.Outputs[0])
}

func TestHandleMask_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/v1/mask", `{"inputs": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/v1/mask", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAddSecrets(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/v1/secrets",
		`{"values": ["supersecret123"], "origin": "deploy-job"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp AcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Submitted)
	// Response never echoes the value back.
	assert.NotContains(t, rec.Body.String(), "supersecret123")

	rec = doJSON(srv, http.MethodPost, "/v1/mask", `{"inputs": ["got supersecret123"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "got ***")
}

func TestHandleAddPatterns(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPost, "/v1/patterns",
		`{"patterns": ["tok_[a-z0-9]{12}"], "origin": "ci"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/v1/mask", `{"inputs": ["found tok_abc123def456 here"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "found *** here")
}

func TestHandleAddPatterns_InvalidSilentlyDropped(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// An unparseable pattern is still acknowledged; it simply never
	// matches anything.
	rec := doJSON(srv, http.MethodPost, "/v1/patterns", `{"patterns": ["broken("]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandleMinLength_Clamped(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodPut, "/v1/min-length", `{"min_length": 100}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MinLengthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, masker.MinSecretLengthLimit, resp.MinLength)
}

func TestHandlePrune(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.masker.AddValue("tiny1", "test")
	srv.masker.SetMinSecretLength(6)

	rec := doJSON(srv, http.MethodPost, "/v1/secrets/prune", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/v1/mask", `{"inputs": ["has tiny1 inside"]}`)
	assert.Contains(t, rec.Body.String(), "has tiny1 inside")
}

func TestRegistrationTraced(t *testing.T) {
	srv, tl := newTestServer(t, nil)
	srv.masker.SetTrace(logging.TraceSink(tl.Logger))

	rec := doJSON(srv, http.MethodPost, "/v1/secrets",
		`{"values": ["supersecret123"], "origin": "deploy-job"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	tl.AssertLogged(t, logging.TraceLevel, "deploy-job")
	tl.AssertNoSecret(t, "supersecret123")
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.ServerConfig) {
		c.RateLimit = 1
		c.RateBurst = 1
	})

	first := doJSON(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.ServerConfig) {
		c.MaxBodyBytes = 64
	})

	big := `{"inputs": ["` + strings.Repeat("a", 256) + `"]}`
	rec := doJSON(srv, http.MethodPost, "/v1/mask", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doJSON(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientIP(req))

	req.Header.Set("X-Real-IP", "10.9.9.9")
	assert.Equal(t, "10.9.9.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestClientLimiter_Isolation(t *testing.T) {
	l := newClientLimiter(1, 1)

	require.True(t, l.get("a").Allow())
	assert.False(t, l.get("a").Allow(), "same client exhausts its bucket")
	assert.True(t, l.get("b").Allow(), "different client has its own bucket")

	// Bucket refills over time.
	time.Sleep(1100 * time.Millisecond)
	assert.True(t, l.get("a").Allow())
}
