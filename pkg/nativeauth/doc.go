/*
Package nativeauth is a client for native authentication: sign up, sign in
and password reset driven entirely from the application's own UI, without
a browser redirect.

# Overview

A Client talks to one tenant. Each flow starts with a method on the
Client and advances through continuation states returned in the result:

	client, err := nativeauth.New(nativeauth.Config{
		ClientID:  "00000000-0000-0000-0000-000000000000",
		Authority: "https://contoso.ciamlogin.com/contoso.onmicrosoft.com",
	})
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.SignIn(ctx, nativeauth.SignInParameters{Username: "alice@example.com"})
	if err != nil {
		return err
	}
	switch r := res.(type) {
	case *nativeauth.SignInCodeRequired:
		res, err = r.State.SubmitCode(ctx, promptCode(r.SentTo, r.CodeLength))
	case *nativeauth.SignInPasswordRequired:
		res, err = r.State.SubmitPassword(ctx, promptPassword())
	case *nativeauth.BrowserRequired:
		// The tenant wants a browser for this user.
	}

Results are closed sets: only the types declared in this package implement
SignInResult, SignUpResult and ResetPasswordResult, so a type switch over
them is exhaustive.

# Errors

Every failure is one typed error per flow: *SignInError, *SignUpError,
*ResetPasswordError or *RetrieveAccessTokenError. The Type field names the
failure; Message, CorrelationID and ErrorCodes describe it:

	var signInErr *nativeauth.SignInError
	if errors.As(err, &signInErr) && signInErr.Type == nativeauth.SignInInvalidCredentials {
		// ask again
	}

BrowserRequired is not an error. It is returned as a result whenever the
service asks for a redirect.

# Sign up and password reset

Sign up collects a code, a password and any required attributes in the
order the service asks for them. A completed sign up or reset carries a
state whose SignIn method signs the user in without asking for their
credentials again:

	res, err := client.SignUp(ctx, nativeauth.SignUpParameters{
		Username: "bob@example.com",
		Password: password,
	})
	// ... SubmitCode, SubmitAttributes ...
	if done, ok := res.(*nativeauth.SignUpCompleted); ok {
		signedIn, err := done.State.SignIn(ctx, nil)
	}

Reset password submits the new password and then polls the service until
it confirms the change, at most Config.PollMaxAttempts times.

# Tokens

Tokens are cached per account in a Cache, in memory unless Config.Cache
says otherwise. UserAccount.AccessToken returns the cached access token
while it is outside Config.ExpirationBuffer and refreshes it otherwise:

	account, err := client.CurrentAccount(ctx)
	if account != nil {
		tok, err := account.AccessToken(ctx, []string{"api://contoso/Orders.Read"}, false)
	}

# Retries and correlation

A request answered with a 5xx status is resent up to Config.RetryCount
times. Every call in one flow sends the same client-request-id, which is
also the CorrelationID on results and errors. Cancelling the context, or
Config.FlowTimeout elapsing, ends the call.

# Asynchronous calls

Each flow method has an Async variant returning a Future. OnComplete
callbacks run one at a time on the Client's Dispatcher goroutine, and
exactly once even after Client.Close.
*/
package nativeauth
