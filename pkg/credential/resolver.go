package credential

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// BitrixTokenURL is the Bitrix24 OAuth server token endpoint.
const BitrixTokenURL = "https://oauth.bitrix.info/oauth/token/"

// Resolver supplies the active credential for a call.
type Resolver interface {
	Resolve(ctx context.Context) (Credential, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (Credential, error)

// Resolve calls f(ctx).
func (f ResolverFunc) Resolve(ctx context.Context) (Credential, error) {
	return f(ctx)
}

// Static returns a resolver that always yields cred.
func Static(cred Credential) Resolver {
	return ResolverFunc(func(context.Context) (Credential, error) {
		if err := cred.Validate(); err != nil {
			return Credential{}, err
		}
		return cred, nil
	})
}

// FromEnv reads a credential from environment variables with the given
// prefix (e.g. "BITRIX24_"): AUTH_MODE, WEBHOOK_URL, DOMAIN, ACCESS_TOKEN,
// CLIENT_ID, CLIENT_SECRET, REFRESH_TOKEN.
func FromEnv(prefix string) Credential {
	get := func(key string) string {
		return strings.TrimSpace(os.Getenv(prefix + key))
	}

	mode := Mode(strings.ToLower(get("AUTH_MODE")))
	if mode == "" {
		mode = ModeWebhook
	}

	return Credential{
		Mode:         mode,
		WebhookURL:   get("WEBHOOK_URL"),
		Domain:       get("DOMAIN"),
		AccessToken:  get("ACCESS_TOKEN"),
		ClientID:     get("CLIENT_ID"),
		ClientSecret: get("CLIENT_SECRET"),
		RefreshToken: get("REFRESH_TOKEN"),
	}
}

// OAuth2Refresher resolves oauth2 credentials, refreshing the access token
// through the Bitrix24 OAuth server once it expires. Webhook credentials
// pass through unchanged.
type OAuth2Refresher struct {
	base   Credential
	source oauth2.TokenSource
	mu     sync.Mutex
}

// NewOAuth2Refresher wraps base. expiry is the known expiry of
// base.AccessToken. A zero expiry means the token age is unknown, so the
// token is refreshed on first use, as is an empty access token.
func NewOAuth2Refresher(ctx context.Context, base Credential, expiry time.Time, tokenURL string) (*OAuth2Refresher, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	r := &OAuth2Refresher{base: base}
	if base.Mode != ModeOAuth2 || base.RefreshToken == "" {
		return r, nil
	}
	if tokenURL == "" {
		tokenURL = BitrixTokenURL
	}

	cfg := &oauth2.Config{
		ClientID:     base.ClientID,
		ClientSecret: base.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok := &oauth2.Token{
		AccessToken:  base.AccessToken,
		RefreshToken: base.RefreshToken,
		Expiry:       expiry,
	}
	if tok.AccessToken == "" || expiry.IsZero() {
		tok.Expiry = time.Unix(1, 0)
	}
	r.source = oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok))
	return r, nil
}

// Resolve returns the base credential with a currently valid access token.
func (r *OAuth2Refresher) Resolve(ctx context.Context) (Credential, error) {
	if r.source == nil {
		return r.base, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tok, err := r.source.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("refresh oauth2 token: %w", err)
	}

	cred := r.base
	cred.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	return cred, nil
}
