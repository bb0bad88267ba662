package oidcauth

import (
	"fmt"

	"github.com/authkit/relyingparty/sdk/id"
)

// NewID generates an ID with an optional prefix.  The ID generated is
// suitable for a login request's state or nonce.
func NewID(optionalPrefix string) (string, error) {
	const op = "oidcauth.NewID"
	id, err := id.New(optionalPrefix)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrIdGeneratorFailed, err)
	}
	return id, nil
}
