package auth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidToken is returned when a presented token does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrIdentityMismatch is returned when the asserted user id disagrees
	// with the verified token claims.
	ErrIdentityMismatch = errors.New("identity mismatch")
	// ErrMissingIdentity is returned when no user id can be established.
	ErrMissingIdentity = errors.New("missing identity")
)

// Service performs lightweight token acceptance for the relay. Tokens are
// minted elsewhere (the account service); this server only checks that the
// signature verifies and that the asserted identity matches the claims.
//
// With no secret configured the service degrades to trusting the
// client-asserted user id. That trust boundary is a known limitation of
// the original flow and is kept deliberately; the downgrade is logged at
// startup so operators cannot miss it.
type Service struct {
	jwtConfig *JWTConfig
	log       *zerolog.Logger
}

// NewService creates a token acceptance service.
func NewService(jwtConfig *JWTConfig, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if jwtConfig == nil || len(jwtConfig.Secret) == 0 {
		logger.Warn().Msg("no jwt secret configured, trusting client-asserted identities")
	}
	return &Service{jwtConfig: jwtConfig, log: logger}
}

// Accept establishes the identity behind an authenticate attempt and
// returns the user id the caller should bind. The verified claim is
// authoritative when a secret is configured.
func (s *Service) Accept(userID, token string) (string, error) {
	if s.jwtConfig == nil || len(s.jwtConfig.Secret) == 0 {
		if userID == "" {
			return "", ErrMissingIdentity
		}
		return userID, nil
	}

	if token == "" {
		return "", ErrInvalidToken
	}

	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return "", ErrMissingIdentity
	}
	if userID != "" && userID != claims.UserID {
		return "", ErrIdentityMismatch
	}

	return claims.UserID, nil
}
