// Package session holds the admin's login credentials. A Provider is the
// only place the bearer token is read from or written to: the login flow
// saves it, logout clears it, and the HTTP adapter reads it on every request
// through TokenSource.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
)

// ErrNoCredentials is returned when nobody is logged in.
var ErrNoCredentials = errors.New("not logged in (run `shopctl login`)")

// Credentials are the tokens obtained at login.
type Credentials struct {
	Email        string    `yaml:"email" json:"email"`
	AccessToken  string    `yaml:"access_token" json:"access_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	Server       string    `yaml:"server,omitempty" json:"server,omitempty"`
	IssuedAt     time.Time `yaml:"issued_at" json:"issued_at"`
}

// Valid reports whether the credentials carry an access token.
func (c Credentials) Valid() bool { return c.AccessToken != "" }

// Provider stores credentials for one profile.
type Provider interface {
	// Load returns the stored credentials or ErrNoCredentials.
	Load(ctx context.Context) (Credentials, error)
	// Save replaces the stored credentials.
	Save(ctx context.Context, c Credentials) error
	// Clear removes the stored credentials. Clearing twice is not an error.
	Clear(ctx context.Context) error
}

// TokenSource exposes a Provider to the HTTP adapter.
func TokenSource(p Provider) api.TokenSource {
	return api.TokenFunc(func(ctx context.Context) (string, error) {
		c, err := p.Load(ctx)
		if err != nil {
			return "", err
		}
		return c.AccessToken, nil
	})
}

// Static is a read-only provider for a token supplied out of band, such as
// the SHOPCTL_TOKEN environment variable.
type Static string

func (s Static) Load(context.Context) (Credentials, error) {
	if s == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{AccessToken: string(s)}, nil
}

func (s Static) Save(context.Context, Credentials) error {
	return errors.New("credentials come from the environment and cannot be saved")
}

func (s Static) Clear(context.Context) error {
	return errors.New("credentials come from the environment and cannot be cleared")
}
