// Package auth builds the authenticated HTTP client used by the OneDrive
// store. Obtaining the bearer token is left to the surrounding environment;
// this package only attaches it.
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// BearerTransport injects the Bearer token into every HTTP request.
type BearerTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+t.Token)
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}

// RequireToken returns an HTTP client that authenticates with token.
func RequireToken(token string) (*http.Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("no OneDrive access token configured — set store.onedrive.token or THUNDERBOLT_STORE_ONEDRIVE_TOKEN")
	}
	return &http.Client{Transport: &BearerTransport{Token: token}}, nil
}
