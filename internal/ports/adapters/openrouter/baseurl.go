package openrouter

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultHosts = []string{"openrouter.ai", "api.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts an absolute https URL whose host is allowed.
// Plain http is only accepted for a loopback gateway. An empty allow list
// means the public OpenRouter hosts.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	raw := normalizeBaseURL(baseURL)
	reject := func(reason string) error {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: %s", raw, reason)
	}

	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	case !u.IsAbs() || u.Hostname() == "":
		return reject("absolute URL with host is required")
	case u.User != nil:
		return reject("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return reject("query and fragment are not allowed")
	}

	host := strings.ToLower(u.Hostname())
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !isLoopback(host) {
			return reject("https is required")
		}
	default:
		return reject("https is required")
	}

	if !hostSet(allowedHosts)[host] {
		return reject(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

// hostSet reduces entries like "https://proxy:8080/" to bare lowercase hosts.
func hostSet(hosts []string) map[string]bool {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if i := strings.Index(h, "://"); i >= 0 {
			h = h[i+3:]
		}
		h = strings.Trim(h, "/")
		if host, _, err := net.SplitHostPort(h); err == nil {
			h = host
		}
		if h != "" {
			set[h] = true
		}
	}
	if len(set) == 0 {
		return hostSet(defaultHosts)
	}
	return set
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
