/*
Package authsdk is a Go client for the IT Ops Dashboard HTTP API.

An SDKClient behaves like one browser: it keeps the session cookie in its
own cookie jar, so create one client per signed-in user.

	admin := authsdk.NewSDKClient("http://localhost:8080")
	if _, err := admin.Login(ctx, "root", "secret1"); err != nil {
		return err
	}

	inv, err := admin.CreateInvitation(ctx, authsdk.CreateInvitationRequest{Email: "alice@example.com"})

A new user redeems the invitation with a separate client:

	alice := authsdk.NewSDKClient("http://localhost:8080")
	user, err := alice.Register(ctx, authsdk.RegisterRequest{
		Token:    token,
		Username: "alice",
		Password: "secret1",
	})

# Errors

Non-2xx responses come back as *APIError carrying the status code and the
server's message. IsStatus is a shortcut for status checks:

	if authsdk.IsStatus(err, http.StatusForbidden) {
		// not an admin
	}
*/
package authsdk
