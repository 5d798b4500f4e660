package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "intentio/backend/internal/errors"
)

const tokenSubject = "intentio"

type AuthService struct {
	passphraseHash []byte
	jwtSecret      []byte
	tokenTTL       time.Duration
	now            func() time.Time
}

func NewAuthService(jwtSecret, passphraseHash string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		passphraseHash: []byte(passphraseHash),
		jwtSecret:      []byte(jwtSecret),
		tokenTTL:       tokenTTL,
		now:            time.Now,
	}
}

type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Exchange trades the local passphrase for a bearer token.
func (s *AuthService) Exchange(passphrase string) (*TokenResult, *apperrors.APIError) {
	if len(s.passphraseHash) == 0 {
		return nil, apperrors.Forbidden("passphrase login is disabled")
	}
	if passphrase == "" {
		return nil, apperrors.BadRequest("invalid_passphrase", "passphrase is required")
	}
	if bcrypt.CompareHashAndPassword(s.passphraseHash, []byte(passphrase)) != nil {
		return nil, apperrors.Unauthorized("invalid passphrase")
	}
	return s.IssueToken(tokenSubject)
}

func (s *AuthService) IssueToken(subject string) (*TokenResult, *apperrors.APIError) {
	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token")
	}
	return &TokenResult{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", apperrors.Unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	return claims.Subject, nil
}

func HashPassphrase(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
