package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFileCacheRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cache, err := NewFileCache("user@example.com")
	require.NoError(t, err)

	t.Run("empty cache loads nil", func(t *testing.T) {
		token, err := cache.Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("save then load", func(t *testing.T) {
		saved := &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour).Round(time.Second),
		}
		require.NoError(t, cache.Save(context.Background(), saved))

		loaded, err := cache.Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "access", loaded.AccessToken)
		assert.Equal(t, "refresh", loaded.RefreshToken)
		assert.True(t, saved.Expiry.Equal(loaded.Expiry))
	})
}

func TestFileCachePerAccount(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first, err := NewFileCache("a@example.com")
	require.NoError(t, err)
	second, err := NewFileCache("b@example.com")
	require.NoError(t, err)

	require.NoError(t, first.Save(context.Background(), &oauth2.Token{AccessToken: "token-a"}))

	loaded, err := second.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestTokenFileName(t *testing.T) {
	assert.Equal(t, ".outlook_categorizer_token_default.json", tokenFileName(""))
	assert.Equal(t, ".outlook_categorizer_token_me@example.com.json", tokenFileName("me@example.com"))
	assert.NotContains(t, tokenFileName(`weird/characters\here`), "/")
}

func TestRequiredError(t *testing.T) {
	err := &RequiredError{VerificationURI: "https://microsoft.com/devicelogin", UserCode: "ABCD-1234"}
	assert.Contains(t, err.Error(), "ABCD-1234")
	assert.Contains(t, err.Error(), "devicelogin")
}
