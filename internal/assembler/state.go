package assembler

// State is a point in the build state machine.
type State int

const (
	StateInitialized State = iota
	StateDirectoryCreated
	StateAssetsCopied
	StateIdentifiersAllocated
	StateDocumentsGenerated
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateDirectoryCreated:
		return "directory_created"
	case StateAssetsCopied:
		return "assets_copied"
	case StateIdentifiersAllocated:
		return "identifiers_allocated"
	case StateDocumentsGenerated:
		return "documents_generated"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}


// Phase names the unit of work a failure happened in.
type Phase string

const (
	PhaseValidate  Phase = "validate"
	PhaseLock      Phase = "lock"
	PhaseDirectory Phase = "directory"
	PhaseCopy      Phase = "copy"
	PhaseAllocate  Phase = "allocate"
	PhaseDigest    Phase = "digest"
	PhaseGenerate  Phase = "generate"
	PhaseVerify    Phase = "verify"
)
