package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_SchemeRouting(t *testing.T) {
	proxyFn := NewProxyFunc("http://httpproxy:3128", "http://httpsproxy:3128", "")

	req, err := http.NewRequest(http.MethodGet, "https://example.com/page", nil)
	if err != nil {
		t.Fatal(err)
	}
	proxyURL, err := proxyFn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if proxyURL == nil || proxyURL.Host != "httpsproxy:3128" {
		t.Errorf("expected https proxy, got %v", proxyURL)
	}

	req, err = http.NewRequest(http.MethodGet, "http://example.com/page", nil)
	if err != nil {
		t.Fatal(err)
	}
	proxyURL, err = proxyFn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if proxyURL == nil || proxyURL.Host != "httpproxy:3128" {
		t.Errorf("expected http proxy, got %v", proxyURL)
	}
}

func TestNewProxyFunc_HTTPProxyCoversHTTPS(t *testing.T) {
	proxyFn := NewProxyFunc("http://httpproxy:3128", "", "")

	req, err := http.NewRequest(http.MethodGet, "https://example.com/page", nil)
	if err != nil {
		t.Fatal(err)
	}
	proxyURL, err := proxyFn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if proxyURL == nil || proxyURL.Host != "httpproxy:3128" {
		t.Errorf("expected http proxy for https request, got %v", proxyURL)
	}
}

func TestNewProxyFunc_NoProxyBypass(t *testing.T) {
	proxyFn := NewProxyFunc("http://httpproxy:3128", "http://httpsproxy:3128", "skip.me, .internal.net")

	for _, target := range []string{
		"https://skip.me/page",
		"https://sub.skip.me/page",
		"http://api.internal.net/page",
	} {
		req, err := http.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			t.Fatal(err)
		}
		proxyURL, err := proxyFn(req)
		if err != nil {
			t.Fatalf("proxy func failed for %s: %v", target, err)
		}
		if proxyURL != nil {
			t.Errorf("expected direct connection for %s, got %v", target, proxyURL)
		}
	}

	req, err := http.NewRequest(http.MethodGet, "https://elsewhere.com/page", nil)
	if err != nil {
		t.Fatal(err)
	}
	proxyURL, err := proxyFn(req)
	if err != nil {
		t.Fatalf("proxy func failed: %v", err)
	}
	if proxyURL == nil {
		t.Error("expected proxy for host outside the bypass list")
	}
}

func TestParseNoProxy(t *testing.T) {
	entries := parseNoProxy("Example.com, .Internal.net,, *")
	expected := []string{"example.com", "internal.net", "*"}

	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d (%v)", len(expected), len(entries), entries)
	}
	for i, e := range expected {
		if entries[i] != e {
			t.Errorf("expected entry %q at index %d, got %q", e, i, entries[i])
		}
	}

	if got := parseNoProxy(""); len(got) != 0 {
		t.Errorf("expected no entries for empty input, got %v", got)
	}
}

func TestHostMatches(t *testing.T) {
	tests := []struct {
		host    string
		entries []string
		want    bool
	}{
		{"example.com", []string{"example.com"}, true},
		{"api.example.com", []string{"example.com"}, true},
		{"notexample.com", []string{"example.com"}, false},
		{"Example.COM", []string{"example.com"}, true},
		{"anything.at.all", []string{"*"}, true},
		{"example.com", nil, false},
	}

	for _, tt := range tests {
		if got := hostMatches(tt.host, tt.entries); got != tt.want {
			t.Errorf("hostMatches(%q, %v) = %v, want %v", tt.host, tt.entries, got, tt.want)
		}
	}
}
