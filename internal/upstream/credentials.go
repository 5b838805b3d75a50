package upstream

import (
	"context"
	"strings"
)

// CredentialProvider supplies the bearer token for upstream calls. It is the
// single place the fetch layer reads credentials from.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token.
type StaticToken string

// Token implements CredentialProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

type tokenContextKey struct{}

// ContextWithToken stores the caller's bearer token in ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, strings.TrimSpace(token))
}

// TokenFromContext extracts a token stored with ContextWithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// ContextToken prefers the token carried in the request context and falls
// back to Fallback when none is present.
type ContextToken struct {
	Fallback CredentialProvider
}

// Token implements CredentialProvider.
func (c ContextToken) Token(ctx context.Context) (string, error) {
	if token := TokenFromContext(ctx); token != "" {
		return token, nil
	}
	if c.Fallback == nil {
		return "", ErrNoCredentials
	}
	return c.Fallback.Token(ctx)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
