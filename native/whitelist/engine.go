package whitelist

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
)

var (
	errNilState          = errors.New("whitelist engine: state not configured")
	errRegistryExists    = errors.New("whitelist engine: registry already initialized")
	errRegistryMissing   = errors.New("whitelist engine: registry not initialized")
	errNotAuthority      = errors.New("whitelist engine: caller is not the registry authority")
	errAlreadyListed     = errors.New("whitelist engine: user already whitelisted")
	errNotListed         = errors.New("whitelist engine: user not whitelisted")
	errRegistryExhausted = errors.New("whitelist engine: user counter overflow")
)

const moduleName = "whitelist"

type engineState interface {
	GetWhitelistRegistry() (*Registry, error)
	PutWhitelistRegistry(registry *Registry) error
	GetWhitelistStatus(user types.Identity) (*Status, error)
	PutWhitelistStatus(status *Status) error
}

// Engine manages the dynamic on-ledger whitelist. It also implements Checker
// so it can be composed with a static set.
type Engine struct {
	state  engineState
	events events.Emitter
	pauses nativecommon.PauseView
	nowFn  func() int64
}

// NewEngine returns an engine with a wall clock and a discarding emitter.
func NewEngine() *Engine {
	return &Engine{
		events: events.NoopEmitter{},
		nowFn:  func() int64 { return time.Now().Unix() },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event sink used for state-change notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.events = events.NoopEmitter{}
		return
	}
	e.events = emitter
}

// SetPauses wires the governance pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetNowFunc overrides the wall clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Initialize creates the registry under the given authority. One registry
// exists per deployment.
func (e *Engine) Initialize(authority types.Identity) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	existing, err := e.state.GetWhitelistRegistry()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errRegistryExists
	}
	registry := &Registry{Authority: authority, Active: true}
	if err := e.state.PutWhitelistRegistry(registry); err != nil {
		return nil, err
	}
	return registry.Clone(), nil
}

// Add grants access to a user. Authority-only.
func (e *Engine) Add(caller, user types.Identity) (*Status, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	registry, err := e.authorize(caller)
	if err != nil {
		return nil, err
	}
	status, err := e.state.GetWhitelistStatus(user)
	if err != nil {
		return nil, err
	}
	if status != nil && status.Whitelisted {
		return nil, errAlreadyListed
	}
	if status == nil {
		status = &Status{User: user}
	}
	status.Whitelisted = true
	status.WhitelistedAt = e.nowFn()
	status.WhitelistedBy = caller

	total, err := nativecommon.CheckedAdd(registry.TotalUsers, 1)
	if err != nil {
		return nil, errRegistryExhausted
	}
	registry.TotalUsers = total

	if err := e.state.PutWhitelistStatus(status); err != nil {
		return nil, err
	}
	if err := e.state.PutWhitelistRegistry(registry); err != nil {
		return nil, err
	}
	e.events.Emit(events.WhitelistAdded{User: user, Authority: caller})
	return status.Clone(), nil
}

// Remove revokes a user's access. Authority-only.
func (e *Engine) Remove(caller, user types.Identity) (*Status, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	registry, err := e.authorize(caller)
	if err != nil {
		return nil, err
	}
	status, err := e.state.GetWhitelistStatus(user)
	if err != nil {
		return nil, err
	}
	if status == nil || !status.Whitelisted {
		return nil, errNotListed
	}
	status.Whitelisted = false
	registry.TotalUsers = nativecommon.SatSub(registry.TotalUsers, 1)

	if err := e.state.PutWhitelistStatus(status); err != nil {
		return nil, err
	}
	if err := e.state.PutWhitelistRegistry(registry); err != nil {
		return nil, err
	}
	e.events.Emit(events.WhitelistRemoved{User: user, Authority: caller})
	return status.Clone(), nil
}

// IsWhitelisted implements Checker against the dynamic ledger records.
func (e *Engine) IsWhitelisted(user types.Identity) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	status, err := e.state.GetWhitelistStatus(user)
	if err != nil {
		return false, err
	}
	return status != nil && status.Whitelisted, nil
}

func (e *Engine) authorize(caller types.Identity) (*Registry, error) {
	registry, err := e.state.GetWhitelistRegistry()
	if err != nil {
		return nil, err
	}
	if registry == nil || !registry.Active {
		return nil, errRegistryMissing
	}
	if registry.Authority != caller {
		return nil, errNotAuthority
	}
	return registry, nil
}
