// Package provider resolves per-provider endpoint bases and request
// headers. The engine itself is provider-agnostic; everything
// provider-specific lives here.
package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/fuchsia74/apiconform/common/env"
)

// authStyle selects how the API key travels with a request.
type authStyle string

const (
	// authBearer sends Authorization: Bearer <key> (OpenAI-compatible APIs).
	authBearer authStyle = "bearer"
	// authAPIKey sends x-api-key plus a version header (Anthropic-style).
	authAPIKey authStyle = "api-key"
	// authQuery appends ?key=<key> to the URL (Gemini-style).
	authQuery authStyle = "query"
	// authNone sends no credentials (local or simulated endpoints).
	authNone authStyle = "none"
)

// defaultStyles maps well-known provider names to their auth style. Other
// providers default to bearer unless <NAME>_AUTH_STYLE overrides it.
var defaultStyles = map[string]authStyle{
	"openai":    authBearer,
	"anthropic": authAPIKey,
	"gemini":    authQuery,
	"local":     authNone,
}

const anthropicVersion = "2023-06-01"

// Provider builds URLs and headers for one API provider.
type Provider struct {
	Name    string
	BaseURL string

	key     string
	style   authStyle
	version string
}

// FromEnv resolves a provider from <NAME>_BASE_URL, <NAME>_API_KEY, and
// optionally <NAME>_AUTH_STYLE. A provider without a base URL, or without a
// key when its style requires one, is a configuration error surfaced at
// load time.
func FromEnv(name string) (*Provider, error) {
	prefix := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))

	base := strings.TrimSuffix(env.String(prefix+"_BASE_URL", ""), "/")
	if base == "" {
		return nil, errors.Errorf("provider %q is not configured: set %s_BASE_URL", name, prefix)
	}

	style := defaultStyles[strings.ToLower(name)]
	if style == "" {
		style = authBearer
	}
	if override := env.String(prefix+"_AUTH_STYLE", ""); override != "" {
		style = authStyle(override)
	}

	key := env.String(prefix+"_API_KEY", "")
	if key == "" && style != authNone {
		return nil, errors.Errorf("provider %q is not configured: set %s_API_KEY", name, prefix)
	}

	return &Provider{
		Name:    name,
		BaseURL: base,
		key:     key,
		style:   style,
		version: env.String(prefix+"_API_VERSION", anthropicVersion),
	}, nil
}

// Endpoint joins the provider base with an endpoint path, appending the key
// as a query parameter for query-auth providers.
func (p *Provider) Endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := p.BaseURL + path
	if p.style == authQuery {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + "key=" + url.QueryEscape(p.key)
	}
	return full
}

// Headers builds the per-request header set. Extra headers win over the
// defaults so a case can exercise header-dependent behavior.
func (p *Provider) Headers(extra map[string]string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   "apiconform/1.0",
	}
	switch p.style {
	case authBearer:
		headers["Authorization"] = "Bearer " + p.key
	case authAPIKey:
		headers["x-api-key"] = p.key
		headers["anthropic-version"] = p.version
	}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

// String implements fmt.Stringer without leaking the key.
func (p *Provider) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.BaseURL)
}
