package macro

// CastResult is the ability subsystem's answer to a cast request.
type CastResult uint8

const (
	CastSuccess CastResult = iota
	CastInsufficientResource
	CastOnCooldown
	CastInvalid
	// CastPending reports that resolution has not finished yet. The engine
	// retries it the same way as any other failure.
	CastPending
)

func (r CastResult) String() string {
	switch r {
	case CastSuccess:
		return "success"
	case CastInsufficientResource:
		return "insufficient_resource"
	case CastOnCooldown:
		return "on_cooldown"
	case CastInvalid:
		return "invalid"
	case CastPending:
		return "pending"
	default:
		return "unknown"
	}
}

// CastFunc issues a cast on behalf of a character.
type CastFunc func(characterID, abilityID string) CastResult

// SnapshotProvider returns the current combat state of a character.
type SnapshotProvider func(characterID string) Snapshot
