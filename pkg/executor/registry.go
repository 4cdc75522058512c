package executor

import (
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Factory creates a handler bound to the shared environment.
type Factory func(env *Env) Executor

// Registry maps stages to handlers. Handlers are created on first use and
// reused afterwards. Safe for concurrent use.
type Registry struct {
	env *Env

	mu        sync.Mutex
	factories map[domain.Stage]Factory
	fallback  Factory
	instances map[domain.Stage]Executor
}

// NewRegistry returns a registry with the built-in handlers registered.
func NewRegistry(env *Env) *Registry {
	if env == nil {
		env = &Env{}
	}
	r := &Registry{
		env:       env.withDefaults(),
		factories: make(map[domain.Stage]Factory),
		fallback:  NewGeneral,
		instances: make(map[domain.Stage]Executor),
	}
	for s, f := range Builtins() {
		r.factories[s] = f
	}
	return r
}

// Builtins returns the stage to handler table used by NewRegistry. Stages not
// listed use General.
func Builtins() map[domain.Stage]Factory {
	return map[domain.Stage]Factory{
		domain.StageGreeting:     NewGreeting,
		domain.StageSlotFilling:  NewSlotFilling,
		domain.StageConfirmation: NewConfirmation,
		domain.StageValidation:   NewValidation,
		domain.StageCompletion:   NewFinal,
		domain.StageFinal:        NewFinal,
	}
}

// Register binds a handler factory to a stage, replacing any cached instance.
func (r *Registry) Register(s domain.Stage, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[s] = f
	delete(r.instances, s)
}

// SetDefault replaces the handler used for unmapped stages.
func (r *Registry) SetDefault(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = f
	for s := range r.instances {
		if _, ok := r.factories[s]; !ok {
			delete(r.instances, s)
		}
	}
}

// For returns the handler for a stage.
func (r *Registry) For(s domain.Stage) Executor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ex, ok := r.instances[s]; ok {
		return ex
	}
	f, ok := r.factories[s]
	if !ok {
		f = r.fallback
	}
	ex := f(r.env)
	r.instances[s] = ex
	return ex
}

// Env returns the environment handlers are created with.
func (r *Registry) Env() *Env {
	return r.env
}
