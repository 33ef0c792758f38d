package jwtutil

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/suteetoe/tradenet/pkg/config"
)

// Token types carried in the token_type claim
const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

// ErrWrongTokenType is returned when a valid token is presented where the other type is expected
var ErrWrongTokenType = errors.New("wrong token type")

var jwtConfig *config.JWTConfig

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	Email     string `json:"email"`
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// Initialize sets up the JWT utility with configuration
func Initialize(cfg *config.JWTConfig) {
	jwtConfig = cfg
}

// GeneratePair creates a refresh and an access token for a user
func GeneratePair(email string, userID uint) (*TokenPair, error) {
	refresh, err := generate(email, userID, RefreshToken)
	if err != nil {
		return nil, err
	}
	access, err := generate(email, userID, AccessToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Refresh: refresh, Access: access}, nil
}

// GenerateAccess creates a new access token from validated refresh claims
func GenerateAccess(refresh *UserClaims) (string, error) {
	return generate(refresh.Email, refresh.UserID, AccessToken)
}

func generate(email string, userID uint, tokenType string) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("JWT configuration not initialized")
	}

	ttl := jwtConfig.AccessTTL
	if tokenType == RefreshToken {
		ttl = jwtConfig.RefreshTTL
	}

	now := time.Now()
	claims := &UserClaims{
		Email:     email,
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SigningKey))
}

// ValidateToken validates the token and checks that it has the expected type
func ValidateToken(tokenString, tokenType string) (*UserClaims, error) {
	if jwtConfig == nil {
		return nil, errors.New("JWT configuration not initialized")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtConfig.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
