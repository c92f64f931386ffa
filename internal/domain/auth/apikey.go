package auth

import "context"

// APIKeyInfo identifies the caller behind a verified API key. Raw keys are
// never stored; only the peppered HMAC hash is kept.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository looks up API keys by their peppered HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
