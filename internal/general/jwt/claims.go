package jwt

import (
	"time"

	"food-dispatch/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: registered claims plus the RBAC role
// (CUSTOMER/DRIVER/RESTAURANT/ADMIN). Subject carries the user id.
type Claims struct {
	Role user.Role `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims builds claims for a user token with the given lifetime.
func NewUserClaims(userID string, role user.Role, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
