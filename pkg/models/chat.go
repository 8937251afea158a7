package models

// ChatMode selects how a question is answered.
type ChatMode string

const (
	// ChatModeSummary answers from already-cached analysis text only.
	ChatModeSummary ChatMode = "summary"
	// ChatModeSQL generates and executes SQL to answer the question.
	ChatModeSQL ChatMode = "sql"
)

// Valid reports whether the mode is one of the known values.
func (m ChatMode) Valid() bool {
	return m == ChatModeSummary || m == ChatModeSQL
}

// SQLAttempt records one generation/execution attempt inside a chat turn.
type SQLAttempt struct {
	Attempt int    `json:"attempt"`
	SQL     string `json:"sql"`
	Err     string `json:"error,omitempty"`
}

// CorrectionTrace is the ordered sequence of attempts made while answering
// one question. It never exceeds the configured attempt bound and is
// discarded (logged only) once the turn completes.
type CorrectionTrace []SQLAttempt

// ChatTurn is the result of answering one question. Turns are stateless;
// no conversation memory is kept across them.
type ChatTurn struct {
	Question     string   `json:"question"`
	Mode         ChatMode `json:"mode"`
	Answer       string   `json:"answer"`
	GeneratedSQL string   `json:"generated_sql,omitempty"`
}
