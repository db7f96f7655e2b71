package model

// Chunk status constants.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// validTransitions maps each status to the set of statuses it may transition to.
// Success and error chunks may be re-run.
var validTransitions = map[string]map[string]bool{
	StatusIdle: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusSuccess: true,
		StatusError:   true,
	},
	StatusSuccess: {
		StatusRunning: true,
	},
	StatusError: {
		StatusRunning: true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Chunk is a fenced code region marked executable via its attributes.
// The Code field holds the verbatim source bytes of the fence body; it is
// never trimmed or normalized.
type Chunk struct {
	ID             string
	Language       string
	Code           string
	Attrs          ChunkAttributes
	SourceLine     int // zero-based line of the opening fence
	RenderedResult string
	Status         string
	Error          string
}

// ChunkResult is the outcome of running a single chunk. All execution
// failures are resolved into a result value; nothing is thrown across the
// chunk-execution boundary.
type ChunkResult struct {
	ChunkID    string `json:"chunk_id"`
	Status     string `json:"status"`
	Rendered   string `json:"rendered"`
	Error      string `json:"error,omitempty"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}
