package score

import (
	"errors"
	"time"

	"creditchain/core/events"
	"creditchain/core/types"
	nativecommon "creditchain/native/common"
)

var (
	errNilState        = errors.New("score engine: state not configured")
	errProfileExists   = errors.New("score engine: profile already initialized")
	errProfileNotFound = errors.New("score engine: profile not found")
)

const moduleName = "score"

type engineState interface {
	GetScoreProfile(owner types.Identity) (*Profile, error)
	PutScoreProfile(profile *Profile) error
}

// Engine maintains credit profiles. All deltas route through Update so the
// clamp and counter classification stay in one place.
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

// Initialize creates a credit profile seeded at the initial score. At most one
// profile exists per owner.
func (e *Engine) Initialize(owner types.Identity) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	existing, err := e.state.GetScoreProfile(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errProfileExists
	}
	profile := &Profile{
		Owner:       owner,
		Score:       InitialScore,
		LastUpdated: e.nowFn(),
	}
	if err := e.state.PutScoreProfile(profile); err != nil {
		return nil, err
	}
	e.events.Emit(events.ScoreInitialized{User: owner, Score: profile.Score})
	return profile.Clone(), nil
}

// Update applies a signed delta to the profile and classifies the event:
// positive deltas count as on-time behavior, deltas strictly below the default
// threshold as defaults, and the remaining negative band as lateness. The
// clamp to [floor, ceiling] is authoritative over the raw delta.
func (e *Engine) Update(owner types.Identity, delta int32, reason string) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	profile, err := e.state.GetScoreProfile(owner)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errProfileNotFound
	}

	switch {
	case delta > 0:
		profile.Score = addClamped(profile.Score, uint16(delta))
		profile.OnTime++
	case delta < defaultThreshold:
		profile.Score = subClamped(profile.Score, uint16(-delta))
		profile.Defaults++
	case delta < 0:
		profile.Score = subClamped(profile.Score, uint16(-delta))
		profile.Late++
	}
	profile.LastUpdated = e.nowFn()

	if err := e.state.PutScoreProfile(profile); err != nil {
		return nil, err
	}
	e.events.Emit(events.ScoreUpdated{
		User:     owner,
		Delta:    delta,
		NewScore: profile.Score,
		Reason:   reason,
	})
	return profile.Clone(), nil
}

// RecordNewLoan increments the loan counter on the borrower's profile. The
// score itself is untouched; only repayment behavior moves it.
func (e *Engine) RecordNewLoan(owner types.Identity) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	profile, err := e.state.GetScoreProfile(owner)
	if err != nil {
		return err
	}
	if profile == nil {
		return errProfileNotFound
	}
	profile.TotalLoans++
	profile.LastUpdated = e.nowFn()
	return e.state.PutScoreProfile(profile)
}

// Profile returns a copy of the stored record for queries.
func (e *Engine) Profile(owner types.Identity) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, err := e.state.GetScoreProfile(owner)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errProfileNotFound
	}
	return profile.Clone(), nil
}

func addClamped(score, delta uint16) uint16 {
	sum := uint32(score) + uint32(delta)
	if sum > uint32(CeilingScore) {
		return CeilingScore
	}
	return uint16(sum)
}

func subClamped(score, delta uint16) uint16 {
	if delta > score {
		return FloorScore
	}
	return score - delta
}
