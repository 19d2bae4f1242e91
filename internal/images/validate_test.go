package images

import "testing"

func TestHostValidator(t *testing.T) {
	v := &HostValidator{
		Allowed: []string{"example.com", "cdn.net"},
		Denied:  []string{"internal.example.com"},
	}

	tests := []struct {
		url  string
		ok   bool
		name string
	}{
		{"https://example.com/a.png", true, "allowed host"},
		{"https://img.cdn.net/b.jpg", true, "allowed subdomain"},
		{"https://other.org/c.png", false, "host outside allow list"},
		{"https://internal.example.com/d.png", false, "denied beats allowed"},
		{"ftp://example.com/e.png", false, "disallowed scheme"},
		{"://bad", false, "unparseable"},
		{"https:///no-host.png", false, "missing host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.ok && err != nil {
				t.Errorf("expected %s to validate, got %v", tt.url, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected %s to be rejected", tt.url)
			}
		})
	}
}

func TestHostValidator_EmptyAllowListAcceptsAnyHTTPHost(t *testing.T) {
	v := &HostValidator{Denied: []string{"blocked"}}
	if err := v.Validate("https://anywhere.org/x.png"); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
	if err := v.Validate("https://blocked/x.png"); err == nil {
		t.Errorf("denied host must be rejected")
	}
}
