// Package identity resolves the per-request caller identity from an
// ordered list of sources. Trusted gateway headers are consulted first,
// then bearer token claims already validated upstream; the first source
// that yields an identity wins.
package identity

import (
	"fmt"
	"strconv"
)

// Trusted identity headers set by the upstream gateway. They are only
// meaningful because the gateway trust gate has already confirmed the
// caller is the trusted gateway.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
	HeaderUserName  = "X-User-Name"
)

// Context is the per-request resolved caller identity. It is constructed
// once per request and never mutated afterwards.
type Context struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	DisplayName   string `json:"display_name"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the empty, unauthenticated identity
func Anonymous() *Context {
	return &Context{}
}

// ParseError reports why a source could not produce an identity. The
// pipeline maps any parse error to "unauthenticated" explicitly; partial
// trust is not allowed.
type ParseError struct {
	Source string
	Field  string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("identity source %s: cannot parse %s: %v", e.Source, e.Field, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Source extracts an optional identity from request material. A (nil, nil)
// return means the source has nothing to offer for this request.
type Source interface {
	Name() string
	Identity() (*Context, error)
}

// HeaderSource reads the trusted identity headers. Get is typically bound
// to the inbound request's header lookup.
type HeaderSource struct {
	Get func(name string) string
}

// Name implements Source
func (s HeaderSource) Name() string { return "trusted-headers" }

// Identity requires at minimum a numeric user-id header. A present but
// unparseable id yields a parse error, not a partially populated identity.
// Role and display-name headers are optional and default to empty.
func (s HeaderSource) Identity() (*Context, error) {
	raw := s.Get(HeaderUserID)
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, &ParseError{Source: s.Name(), Field: HeaderUserID, Cause: err}
	}

	return &Context{
		UserID:        uint(id),
		Email:         s.Get(HeaderUserEmail),
		Role:          s.Get(HeaderUserRole),
		DisplayName:   s.Get(HeaderUserName),
		Authenticated: true,
	}, nil
}

// ClaimsSource reads bearer token claims decoded and verified earlier in
// the pipeline. Besides the claim names this service issues it accepts
// common federated alternates, so tokens minted by external identity
// providers with equivalent semantics resolve too.
type ClaimsSource struct {
	Claims map[string]interface{}
}

// Name implements Source
func (s ClaimsSource) Name() string { return "bearer-claims" }

var (
	subjectClaims = []string{"sub", "nameid", "user_id"}
	emailClaims   = []string{"email", "upn"}
	nameClaims    = []string{"name", "unique_name", "given_name"}
	roleClaims    = []string{"role", "roles"}
)

// Identity resolves the claim set into an identity, or nothing when no
// usable subject claim is present.
func (s ClaimsSource) Identity() (*Context, error) {
	if len(s.Claims) == 0 {
		return nil, nil
	}

	subject := firstString(s.Claims, subjectClaims)
	if subject == "" {
		return nil, nil
	}

	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil, &ParseError{Source: s.Name(), Field: "sub", Cause: err}
	}

	return &Context{
		UserID:        uint(id),
		Email:         firstString(s.Claims, emailClaims),
		Role:          firstString(s.Claims, roleClaims),
		DisplayName:   firstString(s.Claims, nameClaims),
		Authenticated: true,
	}, nil
}

// firstString returns the first claim among names that holds a non-empty
// string. Numeric subjects and single-element arrays (e.g. "roles") are
// flattened to their string form.
func firstString(claims map[string]interface{}, names []string) string {
	for _, name := range names {
		v, ok := claims[name]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case []interface{}:
			if len(val) > 0 {
				if s, ok := val[0].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}
