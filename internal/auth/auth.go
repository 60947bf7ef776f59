// Package auth attaches provider credentials to outbound HTTP clients.
package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"golang.org/x/oauth2"
)

// BearerClient returns a client that sends token as a bearer credential on
// every request. The base client's transport and timeout are preserved.
func BearerClient(ctx context.Context, base *http.Client, token string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	client := oauth2.NewClient(ctx, src)
	client.Timeout = base.Timeout
	return client
}

// BasicAuthorization builds an HTTP basic Authorization header value.
func BasicAuthorization(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}
