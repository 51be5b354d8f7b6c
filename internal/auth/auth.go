package auth

import (
	"context"
	"errors"
)

// ErrUnauthorized signals that the active credential was rejected by the
// marketplace. The supervisor reacts by switching to the fallback credential;
// every other authentication error is treated as transient and retried.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Kind distinguishes the two credential variants.
type Kind string

const (
	// KindUser is the primary variant: a captured user web-app session.
	KindUser Kind = "user"
	// KindService is the fallback variant: a service (bot) credential.
	KindService Kind = "service"
)

// Credential pairs a variant with its opaque secret.
type Credential struct {
	Kind   Kind
	Secret string
}

// Provider exchanges a credential for a bearer token.
type Provider interface {
	Authenticate(ctx context.Context, cred Credential) (string, error)
}
