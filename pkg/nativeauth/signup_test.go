package nativeauth_test

import (
	"testing"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth/nativeauthtest"
	"github.com/stretchr/testify/require"
)

func TestSignUp_WithPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{
		Username:   testUsername,
		Password:   testPassword,
		Attributes: map[string]any{"displayName": "Alice"},
	})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.SignUpCodeRequired](t, res)
	require.Equal(t, testUsername, codeRequired.SentTo)
	require.Equal(t, nativeauth.ChannelEmail, codeRequired.Channel)
	require.Equal(t, 6, codeRequired.CodeLength)

	res, err = codeRequired.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	completed := requireAs[*nativeauth.SignUpCompleted](t, res)

	user, ok := h.srv.User(testUsername)
	require.True(t, ok)
	require.Equal(t, testPassword, user.Password)

	signedIn, err := completed.State.SignIn(t.Context(), nil)
	require.NoError(t, err)
	account := requireAs[*nativeauth.SignInCompleted](t, signedIn).Account
	require.Equal(t, testUsername, account.Username)
	require.Equal(t, "Alice", account.Name)

	ids := h.srv.CorrelationIDs()
	for _, id := range ids {
		require.Equal(t, completed.State.CorrelationID(), id)
	}
}

func TestSignUp_PasswordAfterCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{Username: testUsername})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.SignUpCodeRequired](t, res)

	res, err = codeRequired.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	passwordRequired := requireAs[*nativeauth.SignUpPasswordRequired](t, res)

	_, err = passwordRequired.State.SubmitPassword(t.Context(), "short")
	var signUpErr *nativeauth.SignUpError
	require.ErrorAs(t, err, &signUpErr)
	require.Equal(t, nativeauth.SignUpInvalidPassword, signUpErr.Type)

	res, err = passwordRequired.State.SubmitPassword(t.Context(), testPassword)
	require.NoError(t, err)
	requireAs[*nativeauth.SignUpCompleted](t, res)
}

func TestSignUp_AttributesRequired(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{RequiredAttributes: []string{"city"}})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.SignUpCodeRequired](t, res)

	res, err = codeRequired.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	attrsRequired := requireAs[*nativeauth.SignUpAttributesRequired](t, res)
	require.Equal(t, []string{"city"}, attrsRequired.Attributes)

	_, err = attrsRequired.State.SubmitAttributes(t.Context(), map[string]any{"city": "  "})
	var signUpErr *nativeauth.SignUpError
	require.ErrorAs(t, err, &signUpErr)
	require.Equal(t, nativeauth.SignUpInvalidAttributes, signUpErr.Type)
	require.Equal(t, []string{"city"}, signUpErr.InvalidAttributes)

	res, err = attrsRequired.State.SubmitAttributes(t.Context(), map[string]any{"city": "Brisbane"})
	require.NoError(t, err)
	requireAs[*nativeauth.SignUpCompleted](t, res)

	user, ok := h.srv.User(testUsername)
	require.True(t, ok)
	require.Equal(t, "Brisbane", user.Attributes["city"])
}

func TestSignUp_StartErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params nativeauth.SignUpParameters
		want   nativeauth.SignUpErrorType
		check  func(t *testing.T, err *nativeauth.SignUpError)
	}{
		{
			name:   "user already exists",
			params: nativeauth.SignUpParameters{Username: testUsername, Password: testPassword},
			want:   nativeauth.SignUpUserAlreadyExists,
		},
		{
			name:   "password too short",
			params: nativeauth.SignUpParameters{Username: "bob@example.com", Password: "short"},
			want:   nativeauth.SignUpInvalidPassword,
		},
		{
			name: "blank attribute",
			params: nativeauth.SignUpParameters{
				Username:   "bob@example.com",
				Password:   testPassword,
				Attributes: map[string]any{"displayName": ""},
			},
			want: nativeauth.SignUpInvalidAttributes,
			check: func(t *testing.T, err *nativeauth.SignUpError) {
				require.Equal(t, []string{"displayName"}, err.InvalidAttributes)
			},
		},
		{
			name:   "missing username",
			params: nativeauth.SignUpParameters{Password: testPassword},
			want:   nativeauth.SignUpGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, nativeauthtest.Options{})
			h.addUser(t)

			res, err := h.client.SignUp(t.Context(), tt.params)
			require.Nil(t, res)

			var signUpErr *nativeauth.SignUpError
			require.ErrorAs(t, err, &signUpErr)
			require.Equal(t, tt.want, signUpErr.Type)
			require.NotEmpty(t, signUpErr.CorrelationID)
			if tt.check != nil {
				tt.check(t, signUpErr)
			}
		})
	}
}

func TestSignUp_InvalidCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	codeRequired := requireAs[*nativeauth.SignUpCodeRequired](t, res)

	_, err = codeRequired.State.SubmitCode(t.Context(), "not-a-code")
	var signUpErr *nativeauth.SignUpError
	require.ErrorAs(t, err, &signUpErr)
	require.Equal(t, nativeauth.SignUpInvalidCode, signUpErr.Type)

	// The state stays usable after a wrong code.
	res, err = codeRequired.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	requireAs[*nativeauth.SignUpCompleted](t, res)
}

func TestSignUp_ResendCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	first := requireAs[*nativeauth.SignUpCodeRequired](t, res)

	res, err = first.State.ResendCode(t.Context())
	require.NoError(t, err)
	second := requireAs[*nativeauth.SignUpCodeRequired](t, res)
	require.Equal(t, 2, h.srv.Requests(nativeauthtest.SignUpChallenge))

	res, err = second.State.SubmitCode(t.Context(), h.srv.LastCode(testUsername))
	require.NoError(t, err)
	requireAs[*nativeauth.SignUpCompleted](t, res)
}

func TestSignUp_BrowserRequiredWithoutCodeSupport(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{}, func(cfg *nativeauth.Config) {
		cfg.ChallengeTypes = []nativeauth.ChallengeType{nativeauth.ChallengeTypePassword}
	})

	res, err := h.client.SignUp(t.Context(), nativeauth.SignUpParameters{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	requireAs[*nativeauth.BrowserRequired](t, res)
	require.Equal(t, 0, h.srv.Requests(nativeauthtest.SignUpChallenge))
}

func TestSignUpAsync(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nativeauthtest.Options{})

	res, err := h.client.SignUpAsync(t.Context(), nativeauth.SignUpParameters{Username: testUsername}).Wait(t.Context())
	require.NoError(t, err)
	requireAs[*nativeauth.SignUpCodeRequired](t, res)
}
