package oidcauth

// UserSession is the caller's session as seen by the engine.  The host owns
// storage and serializes access per session; the engine mutates the session
// and its token records in place during a request.
type UserSession struct {
	ID string `json:"id,omitempty"`

	Authenticated bool `json:"authenticated"`

	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`

	// ReferrerURL is where the caller should be returned to after an
	// interactive login completes.
	ReferrerURL string `json:"referrer_url,omitempty"`

	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// Tokens holds one record per provider the session authenticated with.
	Tokens []*TokenRecord `json:"tokens,omitempty"`
}

// TokenRecord returns the session's token record for provider, creating and
// attaching an empty one on the first authentication attempt.
func (s *UserSession) TokenRecord(provider string) *TokenRecord {
	for _, t := range s.Tokens {
		if t.Provider == provider {
			return t
		}
	}
	record := &TokenRecord{Provider: provider}
	s.Tokens = append(s.Tokens, record)
	return record
}

// AddRole appends a role claim value to the session.
func (s *UserSession) AddRole(role string) {
	s.Roles = append(s.Roles, role)
}

// AddPermission appends a permission claim value to the session.
func (s *UserSession) AddPermission(permission string) {
	s.Permissions = append(s.Permissions, permission)
}
