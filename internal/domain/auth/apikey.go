package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeOperator grants access to order status management.
const ScopeOperator = "operator"

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity behind a validated API key.
type APIKeyInfo struct {
	ID      string
	UserID  int64
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

type principalKey struct{}

// WithPrincipal stores the authenticated key in ctx.
func WithPrincipal(ctx context.Context, k *APIKeyInfo) context.Context {
	return context.WithValue(ctx, principalKey{}, k)
}

// PrincipalFrom returns the authenticated key stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (*APIKeyInfo, bool) {
	k, ok := ctx.Value(principalKey{}).(*APIKeyInfo)
	return k, ok && k != nil
}
