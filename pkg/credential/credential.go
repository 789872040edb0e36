// Package credential models the two Bitrix24 authentication modes and the
// resolvers that supply them to the request client.
package credential

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how requests are authenticated.
type Mode string

const (
	// ModeWebhook uses an inbound webhook URL with the token embedded in the path.
	ModeWebhook Mode = "webhook"

	// ModeOAuth2 uses a portal domain plus an access token sent as the auth query parameter.
	ModeOAuth2 Mode = "oauth2"
)

// ErrInvalidCredential is returned when a credential is missing fields
// required by its mode.
var ErrInvalidCredential = errors.New("invalid credential")

// Credential is an immutable snapshot of the secrets used for one call.
// Only the fields of the active Mode are consulted.
type Credential struct {
	Mode Mode

	// Webhook mode, e.g. https://portal.bitrix24.com/rest/1/token/
	WebhookURL string

	// OAuth2 mode
	Domain       string
	AccessToken  string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Webhook builds a webhook-mode credential.
func Webhook(url string) Credential {
	return Credential{Mode: ModeWebhook, WebhookURL: url}
}

// OAuth2 builds an oauth2-mode credential without refresh support.
func OAuth2(domain, accessToken string) Credential {
	return Credential{Mode: ModeOAuth2, Domain: domain, AccessToken: accessToken}
}

// Validate checks that the fields required by the mode are present.
func (c Credential) Validate() error {
	switch c.Mode {
	case ModeWebhook:
		if strings.TrimSpace(c.WebhookURL) == "" {
			return fmt.Errorf("%w: webhook url is required", ErrInvalidCredential)
		}
	case ModeOAuth2:
		if strings.TrimSpace(c.Domain) == "" {
			return fmt.Errorf("%w: domain is required", ErrInvalidCredential)
		}
		if c.AccessToken == "" && c.RefreshToken == "" {
			return fmt.Errorf("%w: access token or refresh token is required", ErrInvalidCredential)
		}
	default:
		return fmt.Errorf("%w: unknown auth mode %q", ErrInvalidCredential, c.Mode)
	}
	return nil
}

// BaseURL returns the REST root without a trailing slash.
func (c Credential) BaseURL() string {
	if c.Mode == ModeWebhook {
		return strings.TrimSuffix(c.WebhookURL, "/")
	}
	return "https://" + strings.TrimSuffix(c.Domain, "/") + "/rest"
}

// Endpoint returns the request target for a remote method.
func (c Credential) Endpoint(method string) string {
	return c.BaseURL() + "/" + method + ".json"
}

// UsesQueryAuth reports whether the access token travels as the auth query parameter.
func (c Credential) UsesQueryAuth() bool {
	return c.Mode == ModeOAuth2
}

// Portal returns the portal host, used to scope cache and rate limit keys.
func (c Credential) Portal() string {
	base := c.BaseURL()
	base = strings.TrimPrefix(base, "https://")
	base = strings.TrimPrefix(base, "http://")
	if i := strings.Index(base, "/"); i >= 0 {
		base = base[:i]
	}
	return base
}
