package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes understood by the storefront.
const (
	ScopeCustomer = "customer"
	ScopeStaff    = "staff"
)

// Sentinel errors for authentication and authorization.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrSelfModification = errors.New("cannot modify own account")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// Identity returns the caller identity granted by the key.
func (k *APIKeyInfo) Identity() Identity {
	return Identity{
		UserID: k.UserID,
		Name:   k.Name,
		Scopes: slices.Clone(k.Scopes),
	}
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Name   string
	Scopes []string
}

// IsStaff reports whether the identity may use panel operations.
func (i Identity) IsStaff() bool {
	return slices.Contains(i.Scopes, ScopeStaff)
}

// CheckNotSelf rejects account changes a staff member makes to their own
// account.
func CheckNotSelf(actor Identity, targetUserID string) error {
	if actor.UserID == targetUserID {
		return ErrSelfModification
	}
	return nil
}

// HashKey computes the hex-encoded HMAC-SHA256 of key under pepper. Only
// hashes are stored.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator resolves raw API keys to identities.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given API key
// repository and HMAC pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		keys:   keys,
		pepper: pepper,
	}
}

// Authenticate looks up the key by hash and compares the stored hash in
// constant time.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (Identity, error) {
	if key == "" {
		return Identity{}, ErrUnauthorized
	}

	hash := HashKey(a.pepper, key)
	info, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	computed, err := hex.DecodeString(hash)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare(computed, stored) != 1 {
		return Identity{}, ErrUnauthorized
	}

	return info.Identity(), nil
}

type identityKey struct{}

// WithIdentity stores the identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
