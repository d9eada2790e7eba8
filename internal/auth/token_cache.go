package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
)

// TokenCache persists OAuth tokens between runs so the device-code flow is
// only needed once per account. Load returns (nil, nil) when no token has
// been cached yet.
type TokenCache interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}

// fileCache stores the token as JSON in the user's home directory. One file
// per account so multiple mailboxes can be used side by side.
type fileCache struct {
	path string
}

// NewFileCache creates a file-backed token cache for the given account.
func NewFileCache(account string) (TokenCache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return &fileCache{path: filepath.Join(home, tokenFileName(account))}, nil
}

func tokenFileName(account string) string {
	if account == "" {
		account = "default"
	}
	// Account names are email addresses; keep the file name filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, account)
	return ".outlook_categorizer_token_" + safe + ".json"
}

func (c *fileCache) Load(_ context.Context) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode cached token: %w", err)
	}
	return &token, nil
}

func (c *fileCache) Save(_ context.Context, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}
