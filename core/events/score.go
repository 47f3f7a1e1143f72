package events

import (
	"strconv"

	"creditchain/core/types"
)

const (
	// TypeScoreInitialized is emitted when a credit profile is created.
	TypeScoreInitialized = "score.initialized"
	// TypeScoreUpdated captures every score delta applied to a profile.
	TypeScoreUpdated = "score.updated"
)

// ScoreInitialized captures the creation of a credit profile.
type ScoreInitialized struct {
	User  types.Identity
	Score uint16
}

// EventType satisfies the Event interface.
func (ScoreInitialized) EventType() string { return TypeScoreInitialized }

// Event converts the structured payload into a broadcastable event.
func (e ScoreInitialized) Event() *types.Event {
	return &types.Event{Type: TypeScoreInitialized, Attributes: map[string]string{
		"user":  identityAttr(e.User),
		"score": strconv.FormatUint(uint64(e.Score), 10),
	}}
}

// ScoreUpdated captures a repayment-driven score adjustment.
type ScoreUpdated struct {
	User     types.Identity
	Delta    int32
	NewScore uint16
	Reason   string
}

// EventType satisfies the Event interface.
func (ScoreUpdated) EventType() string { return TypeScoreUpdated }

// Event converts the structured payload into a broadcastable event.
func (e ScoreUpdated) Event() *types.Event {
	attrs := map[string]string{
		"user":     identityAttr(e.User),
		"delta":    strconv.FormatInt(int64(e.Delta), 10),
		"newScore": strconv.FormatUint(uint64(e.NewScore), 10),
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: TypeScoreUpdated, Attributes: attrs}
}
