package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
// Hosts matching an entry in the comma-separated noProxy list bypass
// the proxy entirely.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	skip := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if hostMatches(req.URL.Hostname(), skip) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// parseNoProxy splits a NO_PROXY-style list into normalized host suffixes
func parseNoProxy(noProxy string) []string {
	var hosts []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		part = strings.TrimPrefix(part, ".")
		if part != "" {
			hosts = append(hosts, part)
		}
	}
	return hosts
}

// hostMatches reports whether host equals an entry or is a subdomain of one
func hostMatches(host string, entries []string) bool {
	host = strings.ToLower(host)
	for _, entry := range entries {
		if entry == "*" || host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
