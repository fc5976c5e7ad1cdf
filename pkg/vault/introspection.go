package vault

import (
	"github.com/aretw0/introspection"
)

// State exposes internal state for observability.
type State struct {
	Root        string `json:"root"`
	ProcessLock bool   `json:"process_lock"`
	Packs       int    `json:"packs"`
	Skipped     int    `json:"skipped_packs"`
	Committed   int    `json:"committed"`
	Noops       int    `json:"noops"`
	Rejected    int    `json:"rejected"`
	Repository  any    `json:"repository"`
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	v.mu.Lock()
	defer v.mu.Unlock()

	return State{
		Root:        v.root,
		ProcessLock: v.flock != nil,
		Packs:       v.stats.packs,
		Skipped:     v.stats.skipped,
		Committed:   v.stats.committed,
		Noops:       v.stats.noops,
		Rejected:    v.stats.rejected,
		Repository:  v.repo.State(),
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string {
	return "vault"
}

var _ introspection.Introspectable = (*Vault)(nil)
var _ introspection.Component = (*Vault)(nil)
