package verify

import (
	"context"

	"github.com/goliatone/go-lawcast/core"
)

// Chain passes only when every verifier passes. Verifiers run in order and
// the first rejection or error stops the chain.
type Chain []core.RegistrationVerifier

func (c Chain) Verify(ctx context.Context, token string, remoteIP string) (bool, error) {
	for _, verifier := range c {
		if verifier == nil {
			continue
		}
		ok, err := verifier.Verify(ctx, token, remoteIP)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// RecordRegistration forwards to every member that tracks registrations.
func (c Chain) RecordRegistration(ctx context.Context, remoteIP string) {
	for _, verifier := range c {
		if recorder, ok := verifier.(core.RegistrationRecorder); ok {
			recorder.RecordRegistration(ctx, remoteIP)
		}
	}
}

var (
	_ core.RegistrationVerifier = Chain(nil)
	_ core.RegistrationRecorder = Chain(nil)
)
