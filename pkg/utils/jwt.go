package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleSupervisor may run drawer and recovery operations on any terminal.
const RoleSupervisor = "supervisor"

// CashierClaims are the claims carried by a cashier's access token. Tokens
// are issued by the back office with the shared secret.
type CashierClaims struct {
	CashierID uuid.UUID `json:"cashier_id"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims include role.
func (c *CashierClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// JWTManager handles JWT token generation and validation
type JWTManager struct {
	secretKey []byte
	expiry    time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secret),
		expiry:    expiry,
	}
}

// GenerateAccessToken signs a token for a cashier
func (m *JWTManager) GenerateAccessToken(cashierID uuid.UUID, name string, roles []string) (string, error) {
	now := time.Now()
	claims := &CashierClaims{
		CashierID: cashierID,
		Name:      name,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "pdv-engine",
			Subject:   cashierID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateAccessToken validates an access token and returns the claims
func (m *JWTManager) ValidateAccessToken(tokenString string) (*CashierClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CashierClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CashierClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.CashierID == uuid.Nil {
		return nil, errors.New("token has no cashier")
	}

	return claims, nil
}
