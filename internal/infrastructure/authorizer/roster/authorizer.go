package roster

import (
	"context"

	"github.com/arkade-os/relayd/internal/core/ports"
)

// authorizer grants roles from a static roster of caller identities.
type authorizer struct {
	relayers map[string]struct{}
	managers map[string]struct{}
	pausers  map[string]struct{}
}

func NewAuthorizer(relayers, managers, pausers []string) ports.Authorizer {
	return &authorizer{
		relayers: toSet(relayers),
		managers: toSet(managers),
		pausers:  toSet(pausers),
	}
}

func (a *authorizer) IsRelayer(_ context.Context, caller string) (bool, error) {
	_, ok := a.relayers[caller]
	return ok, nil
}

func (a *authorizer) IsManager(_ context.Context, caller string) (bool, error) {
	_, ok := a.managers[caller]
	return ok, nil
}

func (a *authorizer) IsPauser(_ context.Context, caller string) (bool, error) {
	_, ok := a.pausers[caller]
	return ok, nil
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, v := range list {
		if len(v) > 0 {
			set[v] = struct{}{}
		}
	}
	return set
}
