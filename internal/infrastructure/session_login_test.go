package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionLoginClient_ReturnsCookieHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SID", Value: "s3ss10n", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewSessionLoginClient(server.URL+"/login", time.Second, zap.NewNop())

	header, err := client.SessionCookies(context.Background(), server.URL+"/watch", map[string]string{
		"username": "alice",
		"password": "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "SID=s3ss10n", header)
}

func TestSessionLoginClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewSessionLoginClient(server.URL, time.Second, zap.NewNop())

	_, err := client.SessionCookies(context.Background(), server.URL, map[string]string{"username": "x"})
	assert.Error(t, err)
}

func TestSessionLoginClient_NoCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewSessionLoginClient(server.URL, time.Second, zap.NewNop())

	_, err := client.SessionCookies(context.Background(), server.URL, map[string]string{"username": "x"})
	assert.Error(t, err)
}

func TestSessionLoginClient_NotConfigured(t *testing.T) {
	client := NewSessionLoginClient("", time.Second, zap.NewNop())

	_, err := client.SessionCookies(context.Background(), "https://example.com", map[string]string{"username": "x"})
	assert.Error(t, err)
}

func TestSessionLoginClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewSessionLoginClient(server.URL, 20*time.Millisecond, zap.NewNop())

	_, err := client.SessionCookies(context.Background(), server.URL, map[string]string{"username": "x"})
	assert.Error(t, err)
}
