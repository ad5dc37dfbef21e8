package jwttoken

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims returns the registered claims of the cached JWT.
// The signature is NOT verified; use the result for inspection only.
func (s *Service) Claims() (*jwt.RegisteredClaims, error) {
	s.mu.RLock()
	token, ok := s.token, s.hasToken
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoToken
	}
	return parseClaims(token)
}

func parseClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}
	return claims, nil
}
