// Package errors provides the structured error taxonomy used by the decision
// loop, the tool dispatcher and the automation sequencer.
//
// # Codes
//
// Every failure carries a code:
//
//   - PROTOCOL_VIOLATION: the oracle reply matched neither line marker
//   - UNKNOWN_TOOL, INSUFFICIENT_ARGUMENTS, TYPE_COERCION: dispatch faults
//   - ORACLE_TIMEOUT, ORACLE_FAULT: the text-generation call failed
//   - UI_ACTION: one automation strategy attempt failed (never fatal)
//   - APP_START: every start candidate failed (fatal for the sequence)
//
// # Categories
//
// Codes map to a default category: transient (timing or load dependent),
// permanent (will fail again) or internal (bugs, panics).
//
// # Usage
//
//	err := errors.UnknownTool("foo")
//	if errors.Is(err, errors.ErrCodeUnknownTool) {
//	    // record in history and stop
//	}
//
// Errors marshal to JSON so run journals can carry them verbatim.
package errors
