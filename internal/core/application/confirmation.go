package application

import "github.com/arkade-os/relayd/internal/core/domain"

// confirmationEngine applies the N-of-M attestation rule to a settings
// snapshot taken at the beginning of an operation.
type confirmationEngine struct {
	challengeThreshold    uint64
	requiredConfirmations uint64
}

func newConfirmationEngine(settings domain.Settings) confirmationEngine {
	return confirmationEngine{
		challengeThreshold:    settings.ChallengeThreshold,
		requiredConfirmations: settings.RequiredConfirmations,
	}
}

// finalizesImmediately tells whether a transfer of the given value needs no
// relayer consensus.
func (e confirmationEngine) finalizesImmediately(amount uint64) bool {
	return amount < e.challengeThreshold
}

func (e confirmationEngine) reachedQuorum(count int) bool {
	return count >= 0 && uint64(count) >= e.requiredConfirmations
}
