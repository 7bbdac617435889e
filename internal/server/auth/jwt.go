// Package auth issues and verifies the bearer tokens the dashboard presents
// on every vault request.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stackdeck/credvault/internal/common"
	"github.com/stackdeck/credvault/internal/server/models"
)

// Claims carries the actor identity the audit log snapshots on every action.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
}

func GenerateToken(actor *models.Actor, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: actor.ID,
		Name:   actor.Name,
		Email:  actor.Email,
		Admin:  actor.Admin,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func GetActorFromToken(tokenString string, secretKey []byte) (*models.Actor, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &models.Actor{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Admin: claims.Admin,
	}, nil
}
