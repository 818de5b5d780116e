package domain

import "strings"

// ChallengeType is how the service wants the user to prove themselves.
type ChallengeType string

const (
	ChallengeTypeOOB      ChallengeType = "oob"
	ChallengeTypeOTP      ChallengeType = "otp"
	ChallengeTypePassword ChallengeType = "password"
	ChallengeTypeRedirect ChallengeType = "redirect"
)

// ParseChallengeType maps a wire value to a ChallengeType. Unknown values
// report false.
func ParseChallengeType(s string) (ChallengeType, bool) {
	switch ChallengeType(strings.ToLower(strings.TrimSpace(s))) {
	case ChallengeTypeOOB:
		return ChallengeTypeOOB, true
	case ChallengeTypeOTP:
		return ChallengeTypeOTP, true
	case ChallengeTypePassword:
		return ChallengeTypePassword, true
	case ChallengeTypeRedirect:
		return ChallengeTypeRedirect, true
	default:
		return "", false
	}
}

// IsCode reports whether the challenge is satisfied by a one-time code.
func (t ChallengeType) IsCode() bool {
	return t == ChallengeTypeOOB || t == ChallengeTypeOTP
}

// Channel is where a one-time code was delivered.
type Channel string

const (
	ChannelNone  Channel = "none"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ParseChannel maps a wire value to a Channel. The service reports SMS
// delivery as "phone" on some endpoints.
func ParseChannel(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email":
		return ChannelEmail
	case "sms", "phone":
		return ChannelSMS
	default:
		return ChannelNone
	}
}

// ChallengeDescriptor tells the caller what the user has to do next.
type ChallengeDescriptor struct {
	Type        ChallengeType
	TargetLabel string
	Channel     Channel
	CodeLength  int
}

// DefaultChallengeTypes are advertised when the caller configures none.
var DefaultChallengeTypes = []ChallengeType{ChallengeTypeOOB, ChallengeTypePassword}

// ChallengeTypeParam renders the challenge_type parameter: the configured
// types in order, deduplicated, with redirect always last.
func ChallengeTypeParam(types []ChallengeType) string {
	if len(types) == 0 {
		types = DefaultChallengeTypes
	}

	seen := make(map[ChallengeType]bool, len(types)+1)
	out := make([]string, 0, len(types)+1)
	for _, t := range types {
		if t == ChallengeTypeRedirect || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, string(t))
	}
	return strings.Join(append(out, string(ChallengeTypeRedirect)), " ")
}
