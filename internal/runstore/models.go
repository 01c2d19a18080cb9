package runstore

import "time"

// State is a pipeline run's position in the build state machine.
type State string

const (
	StateStart           State = "start"
	StateManifestsLoaded State = "manifests-loaded"
	StateDepsCached      State = "deps-cached"
	StateSourceRestored  State = "source-restored"
	StateBinaryBuilt     State = "binary-built"
	StateImageAssembled  State = "image-assembled"
	StateFailed          State = "failed"
)

// Order lists the non-failure states in pipeline order.
var Order = []State{
	StateStart,
	StateManifestsLoaded,
	StateDepsCached,
	StateSourceRestored,
	StateBinaryBuilt,
	StateImageAssembled,
}

// Terminal reports whether no further transition is allowed from s. A failed
// run is restarted from scratch, never resumed.
func (s State) Terminal() bool {
	return s == StateImageAssembled || s == StateFailed
}

// Run is one pipeline execution from start to a terminal state.
type Run struct {
	ID           string
	Pipeline     string
	State        State
	CacheKey     string
	CacheHit     bool
	ErrorKind    string
	ErrorMessage string
	ArtifactPath string
	ImageTag     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transition is one recorded state change of a run.
type Transition struct {
	RunID      string
	State      State
	OccurredAt time.Time
}
