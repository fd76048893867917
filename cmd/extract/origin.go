package main

import (
	"net/url"
	"strings"
)

// origin returns scheme://host of raw, or "" when raw is not an absolute http(s) URL.
func origin(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
