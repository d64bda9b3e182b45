package util

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), target string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "localhost, .internal,appwrite.local:443")

	tests := []struct {
		target string
		want   string
	}{
		{"http://api.example.com/x", "http://proxy:3128"},
		{"https://generativelanguage.googleapis.com/v1beta", "http://secure-proxy:3128"},
		{"http://localhost:11434/api/generate", ""},
		{"https://db.internal/v1", ""},
		{"https://appwrite.local/v1/account", ""},
		{"https://sub.appwrite.local/v1/account", ""},
	}

	for _, tt := range tests {
		if got := proxyFor(t, fn, tt.target); got != tt.want {
			t.Errorf("%s: expected proxy %q, got %q", tt.target, tt.want, got)
		}
	}
}

func TestNewProxyFunc_Wildcard(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "", "*")
	if got := proxyFor(t, fn, "https://api.example.com"); got != "" {
		t.Errorf("expected direct connection, got %q", got)
	}
}

func TestNewTransport(t *testing.T) {
	tr := NewTransport("http://proxy:3128", "", "")
	if tr.Proxy == nil {
		t.Fatal("expected proxy func on transport")
	}
	if got := proxyFor(t, tr.Proxy, "http://api.example.com"); got != "http://proxy:3128" {
		t.Errorf("expected http://proxy:3128, got %q", got)
	}
}
