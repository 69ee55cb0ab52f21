package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenType string

const (
	accessTokenType  tokenType = "access"
	refreshTokenType tokenType = "refresh"
)

// Tolerated clock drift between the API and whoever minted the token.
const clockSkew = 10 * time.Second

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

// medicationClaims is the wire form. The role entity (patient, prescriber
// or pharmacist record) travels as a single "eid" claim whose meaning is
// fixed by the role.
type medicationClaims struct {
	jwt.RegisteredClaims
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	EntityID  *uuid.UUID `json:"eid,omitempty"`
	TokenType tokenType  `json:"token_type"`
}

type JWTManager struct {
	cfg    config.JWTConfig
	parser *jwt.Parser
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
		now: time.Now,
	}
}

// GenerateTokenPair issues an access token and a refresh token for the
// same identity. The pair's ExpiresAt is the access token's expiry.
func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	accessToken, expiresAt, err := m.sign(claims, accessTokenType, m.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshToken, _, err := m.sign(claims, refreshTokenType, m.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(tokenString string) (*domain.Claims, error) {
	return m.verify(tokenString, accessTokenType)
}

func (m *JWTManager) ValidateRefreshToken(tokenString string) (*domain.Claims, error) {
	return m.verify(tokenString, refreshTokenType)
}

func (m *JWTManager) sign(claims *domain.Claims, ttype tokenType, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)

	var entity *uuid.UUID
	if id := claims.EntityID(); id != uuid.Nil {
		entity = &id
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, medicationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      string(claims.Role),
		EntityID:  entity,
		TokenType: ttype,
	})

	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *JWTManager) verify(tokenString string, expected tokenType) (*domain.Claims, error) {
	var wire medicationClaims
	_, err := m.parser.ParseWithClaims(tokenString, &wire, func(*jwt.Token) (any, error) {
		return []byte(m.cfg.Secret), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}

	if wire.TokenType != expected {
		return nil, ErrTokenTypeMismatch
	}

	userID, err := uuid.Parse(wire.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	role := domain.Role(wire.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}

	claims := &domain.Claims{
		UserID: userID,
		Email:  wire.Email,
		Name:   wire.Name,
		Role:   role,
	}
	switch role {
	case domain.RolePatient:
		claims.PatientID = wire.EntityID
	case domain.RolePrescriber:
		claims.PrescriberID = wire.EntityID
	case domain.RolePharmacist:
		claims.PharmacistID = wire.EntityID
	}
	return claims, nil
}
