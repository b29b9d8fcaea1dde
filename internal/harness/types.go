package harness

import "github.com/roach88/thisme/internal/ir"

// Trace event types.
const (
	TraceCall = "call"
	TraceRead = "read"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Type  string     `json:"type"` // "call" or "read"
	Path  string     `json:"path"`
	Args  []any      `json:"args,omitempty"`
	Value ir.IRValue `json:"value,omitempty"`
	Found bool       `json:"found"`
	Error string     `json:"error,omitempty"`
	Seq   int64      `json:"seq,omitempty"` // seq of the committed record, if any
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step check and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed checks. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Session, Thoughts, Index and Branches capture the kernel's final
	// state for assertions, golden files and persistence.
	Session  ir.Session            `json:"session"`
	Thoughts []ir.Thought          `json:"thoughts"`
	Index    map[string]ir.IRValue `json:"index"`
	Branches map[string]string     `json:"branches"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Thoughts: []ir.Thought{},
		Index:    make(map[string]ir.IRValue),
		Branches: make(map[string]string),
	}
}

// AddError adds a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
