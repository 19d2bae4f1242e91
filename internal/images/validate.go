package images

import (
	"fmt"
	"net/url"
	"strings"
)

// HostValidator is the default Validator: it accepts http/https URLs,
// rejects anything on the deny list, and, when an allow list is configured,
// rejects hosts outside it. Patterns match a host exactly or as a
// dot-separated suffix ("example.com" matches "cdn.example.com").
type HostValidator struct {
	Allowed []string
	Denied  []string
}

func (v *HostValidator) Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("unparseable url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing host")
	}
	for _, pattern := range v.Denied {
		if matchHost(host, pattern) {
			return fmt.Errorf("host %q is denied", host)
		}
	}
	if len(v.Allowed) > 0 {
		for _, pattern := range v.Allowed {
			if matchHost(host, pattern) {
				return nil
			}
		}
		return fmt.Errorf("host %q not in allow list", host)
	}
	return nil
}

func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}
