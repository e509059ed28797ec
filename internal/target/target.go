package target

import (
	"fmt"
	"net/url"
	"strings"
)

// Target describes a single HTTP endpoint under test. It is built once per
// run from configuration and never mutated afterwards.
type Target struct {
	BaseURL      string            `json:"base_url" yaml:"base_url"`
	Path         string            `json:"path" yaml:"path"`
	Method       string            `json:"method" yaml:"method"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyTemplate string            `json:"body_template,omitempty" yaml:"body_template,omitempty"`

	// Tokens supplies an Authorization bearer token per request when set.
	Tokens TokenProvider `json:"-" yaml:"-"`
}

// URL joins the base URL and path into the full request URL.
func (t Target) URL() string {
	return strings.TrimRight(t.BaseURL, "/") + t.Path
}

// Key identifies the endpoint for baseline lookup. Two runs against the same
// method+URL compare against the same stored baseline.
func (t Target) Key() string {
	return fmt.Sprintf("%s %s", strings.ToUpper(t.Method), t.URL())
}

// Validate checks the descriptor before any call is dispatched.
func (t Target) Validate() error {
	if t.BaseURL == "" {
		return fmt.Errorf("target base URL is required")
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid target base URL %q: %w", t.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target base URL %q must use http or https", t.BaseURL)
	}
	switch strings.ToUpper(t.Method) {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS":
	case "":
		return fmt.Errorf("target method is required")
	default:
		return fmt.Errorf("unsupported target method %q", t.Method)
	}
	if t.Path != "" && !strings.HasPrefix(t.Path, "/") {
		return fmt.Errorf("target path %q must start with /", t.Path)
	}
	return nil
}
