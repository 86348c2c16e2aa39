package resolver

import (
	"sync"

	"github.com/glorpus-work/thinlaunch/pkg/repository"
)

// PolicyLoader reads the current configuration into a repository policy.
type PolicyLoader func() (*repository.Policy, error)

var (
	instanceMu    sync.Mutex
	instance      *Resolver
	instanceState = StateUninitialized
)

// Instance returns the process-wide resolver, initializing it with load on
// first use or after CloseInstance. Later calls reuse it without calling load.
func Instance(load PolicyLoader, opts ...Option) (*Resolver, error) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance, nil
	}
	instanceState = StateUninitialized
	policy, err := load()
	if err != nil {
		return nil, err
	}
	r, err := New(policy, opts...)
	if err != nil {
		return nil, err
	}
	instance, instanceState = r, StateInitialized
	return r, nil
}

// CloseInstance discards the process-wide resolver; the next Instance call
// initializes a new one from the then current configuration.
func CloseInstance() error {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance, instanceState = nil, StateClosed
	return err
}

// InstanceState reports the lifecycle state of the process-wide resolver.
func InstanceState() State {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instanceState
}
