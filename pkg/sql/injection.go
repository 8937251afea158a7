package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a
// free-text input.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckQuestion screens a natural-language question for SQL injection
// payloads before the text is embedded into model prompts. Questions that
// merely mention SQL keywords pass; classic injection fragments
// (quote-break, stacked statements, comment suffixes) are flagged.
//
// Example:
//
//	CheckQuestion("How many orders were placed in 2018?")  // nil
//	CheckQuestion("x'; DROP TABLE orders--")               // flagged
func CheckQuestion(question string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}
