package manager

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"github.com/cuemby/aifs/pkg/security"
	"github.com/cuemby/aifs/pkg/types"
)

// TokenManager mints and verifies capability tokens (spec §6.5): a
// permission set, optional namespace restriction, expiry, and a signature
// over the foregoing under a server-held Ed25519 key. Grounded on the
// teacher's TokenManager (random-token generation, map+mutex bookkeeping),
// retargeted from cluster join tokens to capability bags.
type TokenManager struct {
	mu     sync.RWMutex
	tokens map[string]*types.CapabilityToken
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
}

// NewTokenManager creates a token manager whose tokens are signed under a
// freshly generated Ed25519 key pair.
func NewTokenManager() (*TokenManager, error) {
	priv, pub, err := security.GenerateKeyPair()
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "generate token signing key", err)
	}
	return &TokenManager{
		tokens: make(map[string]*types.CapabilityToken),
		priv:   priv,
		pub:    pub,
	}, nil
}

// tokenMessage is the signed byte sequence for a capability token: its ID,
// permission set (in declaration order), namespace scope, and expiry.
func tokenMessage(tokenID string, perms []types.Permission, namespace string, expiresAt time.Time) []byte {
	parts := make([]string, 0, len(perms)+3)
	parts = append(parts, tokenID)
	for _, p := range perms {
		parts = append(parts, string(p))
	}
	parts = append(parts, namespace, expiresAt.UTC().Format(time.RFC3339Nano))
	return []byte(strings.Join(parts, ":"))
}

// Generate mints a new capability token granting perms, optionally scoped to
// namespace (empty means unscoped), expiring after ttl.
func (tm *TokenManager) Generate(perms []types.Permission, namespace string, ttl time.Duration) (*types.CapabilityToken, error) {
	rawID := make([]byte, 16)
	if _, err := rand.Read(rawID); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "generate token id", err)
	}

	tok := &types.CapabilityToken{
		TokenID:     uuid.NewString() + "-" + hex.EncodeToString(rawID),
		Permissions: append([]types.Permission(nil), perms...),
		Namespace:   namespace,
		ExpiresAt:   time.Now().Add(ttl),
	}
	sig := security.SignData(tm.priv, tokenMessage(tok.TokenID, tok.Permissions, tok.Namespace, tok.ExpiresAt))
	tok.SignatureHex = hex.EncodeToString(sig)

	tm.mu.Lock()
	tm.tokens[tok.TokenID] = tok
	tm.mu.Unlock()

	return tok, nil
}

// Verify implements the §6.5 verification order: parse (lookup) → check
// expiry → check required permissions ⊆ granted permissions → check
// namespace match if set → validate signature. A scope mismatch (missing
// permission or wrong namespace) is PermissionDenied; a missing, expired,
// or signature-invalid token is Unauthenticated.
func (tm *TokenManager) Verify(tokenID string, required []types.Permission, namespace string) error {
	tm.mu.RLock()
	tok, ok := tm.tokens[tokenID]
	tm.mu.RUnlock()
	if !ok {
		return aifserrors.New(aifserrors.Unauthenticated, "unknown token", nil)
	}

	if time.Now().After(tok.ExpiresAt) {
		return aifserrors.New(aifserrors.Unauthenticated, "token expired", nil)
	}

	granted := make(map[types.Permission]bool, len(tok.Permissions))
	for _, p := range tok.Permissions {
		granted[p] = true
	}
	for _, need := range required {
		if !granted[need] {
			return aifserrors.PermissionDeniedf(string(need), tok.TokenID)
		}
	}

	if tok.Namespace != "" && namespace != "" && tok.Namespace != namespace {
		return aifserrors.PermissionDeniedf("namespace scope", tok.TokenID)
	}

	sig, err := hex.DecodeString(tok.SignatureHex)
	if err != nil {
		return aifserrors.New(aifserrors.Unauthenticated, "malformed token signature", nil)
	}
	msg := tokenMessage(tok.TokenID, tok.Permissions, tok.Namespace, tok.ExpiresAt)
	if !security.VerifyData(tm.pub, msg, sig) {
		return aifserrors.New(aifserrors.Unauthenticated, "invalid token signature", nil)
	}

	return nil
}

// Revoke removes tokenID so it no longer verifies.
func (tm *TokenManager) Revoke(tokenID string) {
	tm.mu.Lock()
	delete(tm.tokens, tokenID)
	tm.mu.Unlock()
}

// CleanupExpired removes all tokens past their expiry.
func (tm *TokenManager) CleanupExpired() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for id, tok := range tm.tokens {
		if now.After(tok.ExpiresAt) {
			delete(tm.tokens, id)
		}
	}
}

// List returns all live (not necessarily unexpired) tokens.
func (tm *TokenManager) List() []*types.CapabilityToken {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]*types.CapabilityToken, 0, len(tm.tokens))
	for _, tok := range tm.tokens {
		out = append(out, tok)
	}
	return out
}
