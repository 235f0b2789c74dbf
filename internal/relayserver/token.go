package relayserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"woosh/internal/domain"
)

const claimsKey = "claims"

// ErrTokenInvalid covers every way a bearer token can be rejected.
var ErrTokenInvalid = errors.New("invalid token")

// Claims are the identity fields carried in a relay token.
type Claims struct {
	UID   domain.UID   `json:"uid"`
	Email domain.Email `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for uid/email valid for ttl.
func IssueToken(secret string, uid domain.UID, email domain.Email, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:   uid,
		Email: normalizeEmail(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(uid),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UID == "" || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// jwtMiddleware authenticates the request and registers the caller.
func (s *Server) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abort(c, http.StatusUnauthorized, "Invalid authorization header")
			return
		}
		claims, err := ParseToken(s.cfg.JWTSecret, parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.state.register(claims.UID, claims.Email)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func callerFrom(c *gin.Context) *Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*Claims)
	return claims
}

func normalizeEmail(e domain.Email) domain.Email {
	return domain.Email(strings.ToLower(strings.TrimSpace(string(e))))
}
