package auth

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

const guestTokenBytes = 32

// GuestTokenIssuer mints and verifies the opaque per-ticket capability token
// that substitutes for authentication when the actor is a guest. Only the
// bcrypt hash is stored; the plain token is returned exactly once, at ticket
// creation.
type GuestTokenIssuer struct {
	cost int
}

// NewGuestTokenIssuer builds an issuer with the configured bcrypt cost.
func NewGuestTokenIssuer(cost int) *GuestTokenIssuer {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &GuestTokenIssuer{cost: cost}
}

// Issue generates a fresh token and the hash to persist alongside the ticket.
func (g *GuestTokenIssuer) Issue() (token, hash string, err error) {
	raw := make([]byte, guestTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), g.cost)
	if err != nil {
		return "", "", err
	}
	return token, string(hashed), nil
}

// Verify reports whether the presented token matches the stored hash.
func (g *GuestTokenIssuer) Verify(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
