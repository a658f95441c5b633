package claims

import "github.com/golang-jwt/jwt/v4"

// Admin carries the identity of an authenticated administrator.
type Admin struct {
	jwt.RegisteredClaims
	AdminID int64
}
