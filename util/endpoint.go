package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// RESTEndpoint builds the bulk jobs endpoint for an instance, e.g.
// https://acme.my.example.com/services/data/v60.0/jobs.
func RESTEndpoint(instanceURL, apiVersion string) (string, error) {
	base, err := NormalizeEndpoint(instanceURL)
	if err != nil {
		return "", err
	}
	v := strings.TrimPrefix(strings.TrimSpace(apiVersion), "v")
	if v == "" {
		return "", fmt.Errorf("api version is empty")
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return "", fmt.Errorf("api version %q is not a number", apiVersion)
	}
	return base + "/services/data/v" + v + "/jobs", nil
}

// NormalizeEndpoint validates an absolute http(s) URL and strips any
// trailing slashes, so paths can be appended with a single "/".
func NormalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// HostPort returns the host:port an endpoint URL connects to, filling
// in the scheme's default port.
func HostPort(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
