package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTokenVerifier_PostsToken(t *testing.T) {
	var gotToken, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotToken = r.PostForm.Get("token")
		_, _ = w.Write([]byte("ap_status=Success&apc_1=abc"))
	}))
	defer srv.Close()

	v := NewHTTPTokenVerifier(testGateway()).WithEndpoint(srv.URL)
	body, err := v.Verify(context.Background(), "tok-123")

	require.NoError(t, err)
	assert.Equal(t, "ap_status=Success&apc_1=abc", body)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
}

func TestHTTPTokenVerifier_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	v := NewHTTPTokenVerifier(testGateway()).WithEndpoint(srv.URL)
	_, err := v.Verify(context.Background(), "tok")

	var vErr *VerificationTransportError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, http.StatusServiceUnavailable, vErr.StatusCode)
}

func TestHTTPTokenVerifier_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testGateway()
	cfg.VerifyTimeout = 50 * time.Millisecond
	v := NewHTTPTokenVerifier(cfg).WithEndpoint(srv.URL)

	start := time.Now()
	_, err := v.Verify(context.Background(), "tok")

	var vErr *VerificationTransportError
	require.True(t, errors.As(err, &vErr))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHTTPTokenVerifier_SelfSignedNeedsOptOut(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testGateway()
	cfg.VerifyTLS = true
	_, err := NewHTTPTokenVerifier(cfg).WithEndpoint(srv.URL).Verify(context.Background(), "tok")
	assert.Error(t, err)

	cfg.VerifyTLS = false
	body, err := NewHTTPTokenVerifier(cfg).WithEndpoint(srv.URL).Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
}
