package reporting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"explainx/internal/model"
)

// expiryBuffer refreshes tokens this long before they expire.
const expiryBuffer = 5 * time.Minute

// TokenStore persists refreshed account tokens.
type TokenStore interface {
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
}

// NewTokenSource returns the stored token while it is valid for more than
// expiryBuffer and refreshes it otherwise. Every refreshed token is written
// back to store before it is used.
func NewTokenSource(ctx context.Context, conf *oauth2.Config, acc *model.AdAccount, store TokenStore) oauth2.TokenSource {
	stored := &oauth2.Token{
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       acc.TokenExpiresAt,
	}
	if acc.AccessToken == "" || acc.TokenExpiresAt.IsZero() {
		stored = nil
	}
	return oauth2.ReuseTokenSourceWithExpiry(stored, &persistingSource{
		ctx:          ctx,
		conf:         conf,
		accountID:    acc.ID,
		refreshToken: acc.RefreshToken,
		store:        store,
	}, expiryBuffer)
}

type persistingSource struct {
	ctx       context.Context
	conf      *oauth2.Config
	accountID string
	store     TokenStore

	mu           sync.Mutex
	refreshToken string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A token without an access token is always refreshed.
	tok, err := s.conf.TokenSource(s.ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	if err := s.store.UpdateTokens(s.ctx, s.accountID, tok.AccessToken, s.refreshToken, tok.Expiry); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}
	return tok, nil
}
