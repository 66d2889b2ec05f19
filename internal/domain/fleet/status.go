package fleet

import "fmt"

// StatusKind is the tag of a CloneStatus variant.
type StatusKind int

const (
	StatusQueued StatusKind = iota
	StatusCloning
	StatusCompleted
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusQueued:
		return "queued"
	case StatusCloning:
		return "cloning"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CloneStatus is the four-case tagged variant from spec §3. It is
// constructed only through the New* functions below, each of which
// enforces "progress is present iff Cloning; error is present iff
// Failed" at construction time rather than leaving it to callers.
type CloneStatus struct {
	kind     StatusKind
	progress int
	errMsg   string
}

// NewQueued builds the Queued case.
func NewQueued() CloneStatus { return CloneStatus{kind: StatusQueued} }

// NewCloning builds the Cloning case. progress must be in [0,100].
func NewCloning(progress int) (CloneStatus, error) {
	if progress < 0 || progress > 100 {
		return CloneStatus{}, fmt.Errorf("cloning progress must be in [0,100], got %d", progress)
	}
	return CloneStatus{kind: StatusCloning, progress: progress}, nil
}

// MustCloning is NewCloning but panics on an invalid progress value;
// used internally where the caller has already validated the range.
func MustCloning(progress int) CloneStatus {
	s, err := NewCloning(progress)
	if err != nil {
		panic(err)
	}
	return s
}

// NewCompleted builds the Completed case.
func NewCompleted() CloneStatus { return CloneStatus{kind: StatusCompleted} }

// NewFailed builds the Failed case. error must be non-empty.
func NewFailed(reason string) (CloneStatus, error) {
	if reason == "" {
		return CloneStatus{}, fmt.Errorf("failed status requires a non-empty error message")
	}
	return CloneStatus{kind: StatusFailed, errMsg: reason}, nil
}

// MustFailed is NewFailed but panics on an empty reason.
func MustFailed(reason string) CloneStatus {
	s, err := NewFailed(reason)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the variant tag.
func (s CloneStatus) Kind() StatusKind { return s.kind }

// Progress returns (progress, true) only for the Cloning variant.
func (s CloneStatus) Progress() (int, bool) {
	if s.kind != StatusCloning {
		return 0, false
	}
	return s.progress, true
}

// Error returns (message, true) only for the Failed variant.
func (s CloneStatus) Error() (string, bool) {
	if s.kind != StatusFailed {
		return "", false
	}
	return s.errMsg, true
}

func (s CloneStatus) String() string {
	switch s.kind {
	case StatusCloning:
		return fmt.Sprintf("cloning(%d%%)", s.progress)
	case StatusFailed:
		return fmt.Sprintf("failed(%s)", s.errMsg)
	default:
		return s.kind.String()
	}
}

// FlatStatus is the wire/serialization shape used by external
// surfaces (CLI JSON output, FFI-style callers): a tag string plus the
// two optional payload fields. ParseFlatStatus is the single point
// that validates the "exactly one of {progress, error} iff
// {Cloning, Failed}" invariant on data coming from outside the
// process.
type FlatStatus struct {
	Tag      string `json:"status"`
	Progress *int   `json:"progress,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// Flatten converts a CloneStatus to its wire shape.
func (s CloneStatus) Flatten() FlatStatus {
	f := FlatStatus{Tag: s.kind.String()}
	if p, ok := s.Progress(); ok {
		f.Progress = &p
	}
	if e, ok := s.Error(); ok {
		f.Error = &e
	}
	return f
}

// ParseFlatStatus reconstructs a CloneStatus from its wire shape,
// rejecting any combination other than the four legal ones.
func ParseFlatStatus(f FlatStatus) (CloneStatus, error) {
	switch f.Tag {
	case StatusQueued.String():
		if f.Progress != nil || f.Error != nil {
			return CloneStatus{}, fmt.Errorf("queued status must carry no progress or error")
		}
		return NewQueued(), nil
	case StatusCloning.String():
		if f.Progress == nil || f.Error != nil {
			return CloneStatus{}, fmt.Errorf("cloning status requires progress and no error")
		}
		return NewCloning(*f.Progress)
	case StatusCompleted.String():
		if f.Progress != nil || f.Error != nil {
			return CloneStatus{}, fmt.Errorf("completed status must carry no progress or error")
		}
		return NewCompleted(), nil
	case StatusFailed.String():
		if f.Error == nil || f.Progress != nil {
			return CloneStatus{}, fmt.Errorf("failed status requires an error and no progress")
		}
		return NewFailed(*f.Error)
	default:
		return CloneStatus{}, fmt.Errorf("unknown clone status tag %q", f.Tag)
	}
}

// CanTransition reports whether moving from 'from' to 'to' is legal
// under the DAG: Queued -> Cloning -> {Completed, Failed}, Cloning ->
// Cloning only when progress is non-decreasing, and Failed -> Cloning
// (a retried clone acquires a fresh temp dir and re-enters the same
// path a Queued task takes). Completed is the only terminal state.
func CanTransition(from, to CloneStatus) bool {
	switch from.kind {
	case StatusQueued, StatusFailed:
		return to.kind == StatusCloning
	case StatusCloning:
		if to.kind == StatusCloning {
			newProgress, _ := to.Progress()
			oldProgress, _ := from.Progress()
			return newProgress >= oldProgress
		}
		return to.kind == StatusCompleted || to.kind == StatusFailed
	default:
		// Completed is terminal.
		return false
	}
}
