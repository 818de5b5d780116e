package nativeauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth/nativeauthtest"
	"github.com/stretchr/testify/require"
)

const newPassword = "tr0ub4dor-and-3"

// resetToPassword runs a reset up to the point where the new password is
// wanted.
func resetToPassword(t *testing.T, h *harness) *nativeauth.ResetPasswordRequiredState {
	t.Helper()

	res, err := h.client.ResetPassword(t.Context(), nativeauth.ResetPasswordParameters{Username: testUsername})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.ResetPasswordCodeRequired](t, res)
	require.Equal(t, testUsername, codeRequired.SentTo)
	require.Equal(t, 6, codeRequired.CodeLength)

	res, err = codeRequired.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	return requireAs[*nativeauth.ResetPasswordRequired](t, res).State
}

func TestResetPassword_Completes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{PollsBeforeCompletion: 2})
	h.addUser(t)

	state := resetToPassword(t, h)
	res, err := state.SubmitPassword(t.Context(), newPassword)
	require.NoError(t, err)
	completed := requireAs[*nativeauth.ResetPasswordCompleted](t, res)
	require.Equal(t, 3, h.srv.Requests(nativeauthtest.ResetPasswordPollCompletion))

	user, ok := h.srv.User(testUsername)
	require.True(t, ok)
	require.Equal(t, newPassword, user.Password)

	signedIn, err := completed.State.SignIn(t.Context(), []string{"User.Read"})
	require.NoError(t, err)
	account := requireAs[*nativeauth.SignInCompleted](t, signedIn).Account
	require.Equal(t, testUsername, account.Username)

	// The old password no longer works.
	_, err = h.client.SignIn(t.Context(), nativeauth.SignInParameters{Username: testUsername, Password: testPassword})
	var signInErr *nativeauth.SignInError
	require.ErrorAs(t, err, &signInErr)
	require.Equal(t, nativeauth.SignInInvalidCredentials, signInErr.Type)
}

func TestResetPassword_StartErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     *nativeauthtest.User
		username string
		want     nativeauth.ResetPasswordErrorType
	}{
		{name: "user not found", username: "bob@example.com", want: nativeauth.ResetPasswordUserNotFound},
		{
			name:     "no password",
			user:     &nativeauthtest.User{Username: "otp@example.com"},
			username: "otp@example.com",
			want:     nativeauth.ResetPasswordUserDoesNotHavePassword,
		},
		{name: "missing username", want: nativeauth.ResetPasswordGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, nativeauthtest.Options{})
			if tt.user != nil {
				h.srv.AddUser(*tt.user)
			}

			_, err := h.client.ResetPassword(t.Context(), nativeauth.ResetPasswordParameters{Username: tt.username})
			var resetErr *nativeauth.ResetPasswordError
			require.ErrorAs(t, err, &resetErr)
			require.Equal(t, tt.want, resetErr.Type)
		})
	}
}

func TestResetPassword_InvalidCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)

	res, err := h.client.ResetPassword(t.Context(), nativeauth.ResetPasswordParameters{Username: testUsername})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.ResetPasswordCodeRequired](t, res)

	_, err = codeRequired.State.SubmitCode(t.Context(), "nope")
	var resetErr *nativeauth.ResetPasswordError
	require.ErrorAs(t, err, &resetErr)
	require.Equal(t, nativeauth.ResetPasswordInvalidCode, resetErr.Type)

	res, err = codeRequired.State.ResendCode(t.Context())
	require.NoError(t, err)
	requireAs[*nativeauth.ResetPasswordCodeRequired](t, res)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.ResetPasswordChallenge))
}

func TestResetPassword_WeakPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)

	state := resetToPassword(t, h)
	_, err := state.SubmitPassword(t.Context(), "weak")
	var resetErr *nativeauth.ResetPasswordError
	require.ErrorAs(t, err, &resetErr)
	require.Equal(t, nativeauth.ResetPasswordInvalidPassword, resetErr.Type)
	require.Zero(t, h.srv.Requests(nativeauthtest.ResetPasswordPollCompletion))
}

func TestResetPassword_PollExhausted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{PollsBeforeCompletion: 5}, func(cfg *nativeauth.Config) {
		cfg.PollMaxAttempts = 2
	})
	h.addUser(t)

	state := resetToPassword(t, h)
	_, err := state.SubmitPassword(t.Context(), newPassword)
	var resetErr *nativeauth.ResetPasswordError
	require.ErrorAs(t, err, &resetErr)
	require.Equal(t, nativeauth.ResetPasswordFailed, resetErr.Type)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.ResetPasswordPollCompletion))
}

func TestResetPassword_PollHonoursContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{}, func(cfg *nativeauth.Config) {
		cfg.PollInterval = time.Hour
	})
	h.addUser(t)

	state := resetToPassword(t, h)

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	_, err := state.SubmitPassword(ctx, newPassword)
	var resetErr *nativeauth.ResetPasswordError
	require.ErrorAs(t, err, &resetErr)
	require.Equal(t, nativeauth.ResetPasswordGeneralError, resetErr.Type)
	require.Zero(t, h.srv.Requests(nativeauthtest.ResetPasswordPollCompletion))
}

func TestResetPasswordAsync(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})
	h.addUser(t)

	future := h.client.ResetPasswordAsync(t.Context(), nativeauth.ResetPasswordParameters{Username: testUsername})
	<-future.Done()

	res, err := future.Wait(t.Context())
	require.NoError(t, err)
	requireAs[*nativeauth.ResetPasswordCodeRequired](t, res)
}
