package validator

import (
	"github.com/aussiebroadwan/nativeauth/internal/domain"
	"github.com/aussiebroadwan/nativeauth/internal/errcode"
	"github.com/aussiebroadwan/nativeauth/internal/wire"
)

type challengeKind int

const (
	challengeInvalid challengeKind = iota
	challengeRedirect
	challengeCode
	challengePassword
)

// classifyChallenge checks a challenge body whose carry-forward token is
// token. When the result is challengeInvalid the returned Unexpected says
// why.
func classifyChallenge(step errcode.Step, p *wire.ChallengeResponse, token string) (challengeKind, domain.ChallengeDescriptor, Unexpected) {
	ct, ok := domain.ParseChallengeType(p.ChallengeType)
	if !ok {
		return challengeInvalid, domain.ChallengeDescriptor{}, missing(step, "challenge_type")
	}
	if ct == domain.ChallengeTypeRedirect {
		return challengeRedirect, domain.ChallengeDescriptor{Type: ct}, Unexpected{}
	}
	if token == "" {
		return challengeInvalid, domain.ChallengeDescriptor{}, missing(step, "continuation token")
	}
	if ct == domain.ChallengeTypePassword {
		return challengePassword, domain.ChallengeDescriptor{Type: ct, Channel: domain.ChannelNone}, Unexpected{}
	}

	desc := domain.ChallengeDescriptor{
		Type:        ct,
		TargetLabel: p.ChallengeTargetLabel,
		Channel:     domain.ParseChannel(p.ChallengeChannel),
		CodeLength:  p.CodeLength,
	}
	switch {
	case desc.TargetLabel == "":
		return challengeInvalid, desc, missing(step, "challenge_target_label")
	case desc.Channel == domain.ChannelNone:
		return challengeInvalid, desc, missing(step, "challenge_channel")
	case desc.CodeLength <= 0:
		return challengeInvalid, desc, missing(step, "code_length")
	}
	return challengeCode, desc, Unexpected{}
}
