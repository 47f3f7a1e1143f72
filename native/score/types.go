package score

import "creditchain/core/types"

const (
	// InitialScore seeds every new credit profile.
	InitialScore uint16 = 500
	// FloorScore and CeilingScore clamp the profile after every delta.
	FloorScore   uint16 = 0
	CeilingScore uint16 = 1000

	// defaultThreshold classifies a negative delta as a default event. The
	// comparison is strictly less than, so exactly -30 counts as lateness.
	defaultThreshold int32 = -30
)

// Profile tracks a user's behavioral credit standing. The score is mutated
// only as a side effect of repayment and default events, never directly by the
// user.
type Profile struct {
	Owner       types.Identity
	Score       uint16
	OnTime      uint32
	Late        uint32
	Defaults    uint16
	TotalLoans  uint32
	LastUpdated int64
}

// Clone returns a copy callers can mutate without touching the stored record.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
