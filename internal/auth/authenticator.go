// Package auth handles the OAuth2 device-code flow against Azure AD and
// caches the resulting tokens so interactive sign-in is a one-time event
// per account.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/alainbuyze/outlook-categorizer/internal/config"
)

const graphScope = "https://graph.microsoft.com/Mail.ReadWrite"

// RequiredError is returned when no usable token exists and the caller must
// complete the device-code flow. It carries everything the user needs to
// finish signing in.
type RequiredError struct {
	VerificationURI string
	UserCode        string
	Message         string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("authentication required: visit %s and enter code %s", e.VerificationURI, e.UserCode)
}

// PromptMode controls how a pending device-code prompt is surfaced.
type PromptMode string

const (
	// PromptConsole prints the verification instructions and blocks until
	// the user completes sign-in.
	PromptConsole PromptMode = "console"
	// PromptWeb returns a RequiredError immediately and polls for the
	// token in the background, suiting HTTP handlers that cannot block.
	PromptWeb PromptMode = "web"
)

// Authenticator acquires and refreshes Graph API tokens via the OAuth2
// device-code grant. Safe for concurrent use.
type Authenticator struct {
	oauth      oauth2.Config
	cache      TokenCache
	promptMode PromptMode
	logger     *logrus.Logger

	mu      sync.Mutex
	token   *oauth2.Token
	pending bool
}

// New builds an Authenticator from config with the given token cache.
func New(cfg *config.Config, cache TokenCache, logger *logrus.Logger) *Authenticator {
	tenant := cfg.AzureTenantID
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return &Authenticator{
		oauth: oauth2.Config{
			ClientID: cfg.AzureClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:       base + "/authorize",
				TokenURL:      base + "/token",
				DeviceAuthURL: base + "/devicecode",
			},
			Scopes: []string{graphScope, "offline_access"},
		},
		cache:      cache,
		promptMode: PromptMode(cfg.DeviceCodePromptMode),
		logger:     logger,
	}
}

// Token returns a valid access token, refreshing or starting the device
// flow as needed. In web prompt mode a *RequiredError is returned while the
// user still has to complete sign-in.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == nil {
		cached, err := a.cache.Load(ctx)
		if err != nil {
			a.logger.WithField("error", err).Warn("failed to load cached token, re-authenticating")
		} else {
			a.token = cached
		}
	}

	if a.token != nil && a.token.Valid() {
		return a.token, nil
	}

	if a.token != nil && a.token.RefreshToken != "" {
		refreshed, err := a.oauth.TokenSource(ctx, a.token).Token()
		if err == nil {
			a.storeToken(ctx, refreshed)
			return refreshed, nil
		}
		a.logger.WithField("error", err).Warn("token refresh failed, starting device flow")
		a.token = nil
	}

	return a.deviceFlowLocked(ctx)
}

// AuthHeaders returns the request headers to authenticate a Graph call.
func (a *Authenticator) AuthHeaders(ctx context.Context) (map[string]string, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token.AccessToken}, nil
}

func (a *Authenticator) deviceFlowLocked(ctx context.Context) (*oauth2.Token, error) {
	if a.promptMode == PromptWeb && a.pending {
		return nil, &RequiredError{Message: "sign-in already in progress, complete it in your browser"}
	}

	deviceAuth, err := a.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device code flow: %w", err)
	}

	if a.promptMode == PromptWeb {
		a.pending = true
		go a.pollDeviceToken(deviceAuth)
		return nil, &RequiredError{
			VerificationURI: deviceAuth.VerificationURI,
			UserCode:        deviceAuth.UserCode,
			Message:         "visit the verification URI, enter the code, then retry the request",
		}
	}

	fmt.Printf("To sign in, visit %s and enter the code %s\n", deviceAuth.VerificationURI, deviceAuth.UserCode)
	token, err := a.oauth.DeviceAccessToken(ctx, deviceAuth)
	if err != nil {
		return nil, fmt.Errorf("device code sign-in failed: %w", err)
	}
	a.storeToken(ctx, token)
	return token, nil
}

// pollDeviceToken completes a web-mode device flow in the background. It
// owns its own context so an aborted HTTP request does not cancel the
// user's sign-in.
func (a *Authenticator) pollDeviceToken(deviceAuth *oauth2.DeviceAuthResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	token, err := a.oauth.DeviceAccessToken(ctx, deviceAuth)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	if err != nil {
		a.logger.WithField("error", err).Warn("device code sign-in did not complete")
		return
	}
	a.storeToken(ctx, token)
	a.logger.Info("device code sign-in completed")
}

// storeToken caches the token; callers must hold a.mu.
func (a *Authenticator) storeToken(ctx context.Context, token *oauth2.Token) {
	a.token = token
	if err := a.cache.Save(ctx, token); err != nil {
		a.logger.WithField("error", err).Warn("failed to persist token cache")
	}
}
