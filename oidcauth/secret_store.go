package oidcauth

import "context"

// SecretStore resolves a relying party's client secret.  The engine never
// holds a secret directly; hosts can plug in a vault-backed store, a file
// store, etc.
type SecretStore interface {
	// ClientSecret returns the secret registered for clientID.
	ClientSecret(ctx context.Context, clientID string) (string, error)
}

// StaticSecretStore is a SecretStore holding a single fixed secret.  It is
// the default store when none is supplied.
type StaticSecretStore struct {
	Secret string
}

// NewStaticSecretStore creates a store holding a single fixed secret.
func NewStaticSecretStore(secret string) *StaticSecretStore {
	return &StaticSecretStore{Secret: secret}
}

func (s *StaticSecretStore) ClientSecret(ctx context.Context, clientID string) (string, error) {
	return s.Secret, nil
}
