package generate

// Entry is one instruction/input/output training record. An Entry only ever
// reaches a checkpoint or the aggregate dataset in fully populated form:
// Instruction and Output are non-empty, Input may legitimately be "".
type Entry struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	// Server identifies the endpoint that produced the entry; only set on
	// multi-endpoint runs, for provenance.
	Server string `json:"server,omitempty"`
}

// AbandonReason classifies why a generation attempt produced no entry.
type AbandonReason string

// Abandonment reasons. Both are local to one attempt; the run continues.
const (
	AbandonBackendUnavailable   AbandonReason = "backend unavailable"
	AbandonMalformedInstruction AbandonReason = "malformed instruction"
)

// Outcome is the result of a single generation attempt: either a committed
// entry or an explicit abandonment. Abandoned attempts do not count toward
// the dataset size target.
type Outcome struct {
	Entry     Entry
	Abandoned bool
	Reason    AbandonReason
	Err       error
}

// Committed wraps a fully populated entry.
func Committed(e Entry) Outcome {
	return Outcome{Entry: e}
}

// Abandoned marks an attempt as discarded for the given reason.
func Abandoned(reason AbandonReason, err error) Outcome {
	return Outcome{Abandoned: true, Reason: reason, Err: err}
}
