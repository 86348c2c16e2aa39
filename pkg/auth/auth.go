// Package auth applies repository credentials to outgoing HTTP requests.
//
//go:generate mockgen -destination=./mocks/auth.go . Authenticator
package auth

import (
	"net/http"
	"sort"
)

// Authenticator decorates a request with credentials.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// BasicAuth represents HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// HeaderAuth sends fixed HTTP headers, e.g. a private token.
type HeaderAuth struct {
	Headers map[string]string
}

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Chain applies several authenticators in order.
type Chain []Authenticator

// Type represents the type of authentication.
type Type string

// Authentication types.
const (
	BasicAuthType  Type = "basic"
	HeaderAuthType Type = "header"
	BearerAuthType Type = "bearer"
	ChainType      Type = "chain"
)

// Apply adds Basic Authentication headers to the HTTP request.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns BasicAuthType.
func (b BasicAuth) Type() Type { return BasicAuthType }

// Apply sets the headers in key order.
func (h HeaderAuth) Apply(req *http.Request) error {
	keys := make([]string, 0, len(h.Headers))
	for k := range h.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.Header.Set(k, h.Headers[k])
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// Apply adds a Bearer token to the Authorization header of the HTTP request.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }

// Apply runs every element; the first error stops the chain.
func (c Chain) Apply(req *http.Request) error {
	for _, a := range c {
		if err := a.Apply(req); err != nil {
			return err
		}
	}
	return nil
}

// Type returns ChainType.
func (c Chain) Type() Type { return ChainType }

// FromServer builds the authenticator for a settings server entry. A username
// selects basic auth, a lone password is sent as a bearer token, and custom
// headers are added on top. Returns nil when the entry carries nothing.
func FromServer(username, password string, headers map[string]string) Authenticator {
	var chain Chain
	switch {
	case username != "":
		chain = append(chain, BasicAuth{Username: username, Password: password})
	case password != "":
		chain = append(chain, BearerAuth{Token: password})
	}
	if len(headers) > 0 {
		chain = append(chain, HeaderAuth{Headers: headers})
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return chain
	}
}
