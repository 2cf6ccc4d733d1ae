// Package auth derives engine callers from bearer credentials. It is an
// optional layer: the transports accept any CallerFactory, and hosts without
// authentication can skip this package entirely.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shaharia-lab/httpmcp/mcp"
)

// ScopeClaims is the token payload the verifier expects: registered claims
// plus a space-separated scope string.
type ScopeClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// JWTVerifier validates HMAC-signed bearer tokens and turns their scope claim
// into the caller's granted scopes.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with the given HMAC
// secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// ValidateToken parses and verifies a token string.
func (v *JWTVerifier) ValidateToken(tokenString string) (*ScopeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ScopeClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims, ok := token.Claims.(*ScopeClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}

// CallerFactory adapts the verifier into the HTTP transport's caller hook.
// A missing Authorization header yields an anonymous caller with no scopes;
// a present but invalid bearer token rejects the request.
func (v *JWTVerifier) CallerFactory() mcp.CallerFactory {
	return func(r *http.Request) (mcp.Caller, error) {
		caller, err := mcp.DefaultCallerFactory(r)
		if err != nil {
			return mcp.Caller{}, err
		}

		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			return caller, nil
		}

		tokenString, ok := strings.CutPrefix(authorization, "Bearer ")
		if !ok {
			return mcp.Caller{}, fmt.Errorf("authorization header is not a bearer token")
		}

		claims, err := v.ValidateToken(tokenString)
		if err != nil {
			return mcp.Caller{}, err
		}

		caller.Scopes = SplitScopes(claims.Scope)
		return caller, nil
	}
}

// SplitScopes parses a space-separated scope string into a scope slice.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// CallerFromScopes builds a session caller for stream transports, where the
// host authenticates out of band and fixes the grant for the whole session.
func CallerFromScopes(scopes ...string) mcp.Caller {
	return mcp.Caller{Scopes: scopes}
}
