package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nexa-sys/userhub/pkg/config"
	svcerrors "github.com/nexa-sys/userhub/pkg/errors"
)

// BearerClaims are the claims embedded in every issued bearer token
type BearerClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into a numeric user id
func (c *BearerClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject is not a numeric user id: %w", err)
	}
	return uint(id), nil
}

// BearerTokenIssuer builds and signs bearer tokens and validates presented
// ones. Construction fails fast on a missing or weak signing secret; the
// issuer itself is immutable and safe to share between requests.
type BearerTokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewBearerTokenIssuer validates the signing configuration and returns an
// issuer. A missing or short secret is a fatal configuration error, not a
// recoverable request-time one.
func NewBearerTokenIssuer(cfg *config.Config) (*BearerTokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, svcerrors.NewConfigError("jwt signing secret is not configured")
	}
	if len(cfg.JWTSecret) < config.MinSecretLength {
		return nil, svcerrors.NewConfigError(
			fmt.Sprintf("jwt signing secret must be at least %d characters", config.MinSecretLength))
	}

	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = "userhub"
	}
	audience := cfg.JWTAudience
	if audience == "" {
		audience = "userhub-clients"
	}
	expiry := cfg.TokenExpiry()
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	return &BearerTokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
	}, nil
}

// Issue builds and signs a bearer token for the given identity. Each token
// carries a unique jti, so two tokens for the same user are distinct.
func (i *BearerTokenIssuer) Issue(userID uint, email, role, displayName string) (string, error) {
	now := time.Now()
	claims := &BearerClaims{
		Email:       email,
		Role:        role,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign bearer token: %w", err)
	}
	return signed, nil
}

// Validate decodes and verifies a presented token. Malformed strings,
// wrong signatures and expired tokens all yield a typed invalid result;
// Validate never panics into the request pipeline.
func (i *BearerTokenIssuer) Validate(tokenString string) (*BearerClaims, error) {
	if tokenString == "" {
		return nil, svcerrors.NewInvalidTokenError()
	}

	token, err := jwt.ParseWithClaims(tokenString, &BearerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, svcerrors.NewTokenExpiredError()
		}
		return nil, svcerrors.NewInvalidTokenError()
	}

	claims, ok := token.Claims.(*BearerClaims)
	if !ok || !token.Valid {
		return nil, svcerrors.NewInvalidTokenError()
	}

	return claims, nil
}

// ExpiryFor returns the expiry a token issued at the given reference time
// would carry, so callers can persist a matching session expiry.
func (i *BearerTokenIssuer) ExpiryFor(now time.Time) time.Time {
	return now.Add(i.expiry)
}
