package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSRFProtection_BlocksLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewSecureClient(SecureClientConfig{
		EnableSSRF: true,
	})

	resp, err := client.Get(server.URL)
	if err == nil {
		CloseBody(resp)
		t.Fatal("Expected SSRF protection to block loopback, but request succeeded")
	}

	assert.Contains(t, err.Error(), "SSRF protection")
}

func TestSSRFDisabled_AllowsLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewSecureClient(SecureClientConfig{})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer CloseBody(resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},      // Loopback
		{"10.0.0.1", true},       // Private
		{"172.16.0.1", true},     // Private
		{"192.168.1.1", true},    // Private
		{"169.254.1.1", true},    // Link-local
		{"0.0.0.0", true},        // Unspecified
		{"::1", true},            // IPv6 loopback
		{"8.8.8.8", false},       // Public
		{"1.1.1.1", false},       // Public
		{"93.184.216.34", false}, // Public
	}

	for _, tt := range tests {
		ip := net.ParseIP(tt.ip)
		require.NotNil(t, ip, "Failed to parse IP: %s", tt.ip)

		assert.Equal(t, tt.expected, isPrivateIP(ip), "IP: %s", tt.ip)
	}
}

func TestValidateURL(t *testing.T) {
	ctx := context.Background()

	assert.Error(t, validateURL(ctx, "http://127.0.0.1:8080/admin"))
	assert.Error(t, validateURL(ctx, "http://[::1]/"))
	assert.Error(t, validateURL(ctx, "/relative/only"))
	assert.NoError(t, validateURL(ctx, "http://8.8.8.8/"))
}

func TestRedirectLimiting(t *testing.T) {
	redirectCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirectCount++
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	client := NewSecureClient(SecureClientConfig{
		FollowRedirects: true,
		MaxRedirects:    3,
	})

	resp, err := client.Get(server.URL)
	CloseBody(resp)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after")
	assert.LessOrEqual(t, redirectCount, 5, "Should stop redirecting")
}

func TestNoRedirectFollowing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	client := NewSecureClient(SecureClientConfig{})

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer CloseBody(resp)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
