package relyingparty_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/authkit/relyingparty/oidcauth"
)

func Example_interactiveLogin() {
	ctx := context.Background()

	settings := oidcauth.NewSettings(
		"https://your-issuer.com/",
		"your_client_id",
		oidcauth.NewStaticSecretStore("your_client_secret"),
	)
	settings.CallbackURL = "https://your-app.com/auth/callback"
	settings.Scopes = []string{"openid", "profile"}

	p, err := oidcauth.NewUserAuthProvider(settings)
	if err != nil {
		// handle error
	}
	if err := p.Init(ctx); err != nil {
		// handle error
	}

	// Per inbound request: load the caller's session from your session
	// store, then ask the provider what to do with the request.
	handler := func(w http.ResponseWriter, r *http.Request) {
		session := &oidcauth.UserSession{} // lookup from your session store
		result, err := p.Authenticate(ctx, session, oidcauth.RequestFromHTTP(r))
		switch {
		case err != nil:
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case result.RedirectURL != "":
			http.Redirect(w, r, result.RedirectURL, http.StatusFound)
		default:
			fmt.Fprintf(w, "welcome back, %s", session.Username)
		}
	}
	_ = handler
}

func Example_serviceLogin() {
	ctx := context.Background()

	settings := oidcauth.NewSettings(
		"https://your-issuer.com/",
		"your_client_id",
		oidcauth.NewStaticSecretStore("your_client_secret"),
	)

	p, err := oidcauth.NewServiceAuthProvider(settings)
	if err != nil {
		// handle error
	}
	if err := p.Init(ctx); err != nil {
		// handle error
	}

	session := &oidcauth.UserSession{}
	if _, err := p.Authenticate(ctx, session, nil); err != nil {
		// handle error
	}
}
