package apperrors

import "errors"

var (
	// ErrConnection means the target database was unreachable or rejected
	// the credentials. Fatal to the request.
	ErrConnection = errors.New("connection failed")

	// ErrIntrospection means the engine-specific metadata query failed.
	ErrIntrospection = errors.New("introspection failed")

	// ErrAnalysis means a statistics or language-model call failed during
	// cache computation. Recoverable: the next request recomputes.
	ErrAnalysis = errors.New("analysis failed")

	// ErrExecution means a generated SQL statement failed to execute.
	// Recovered internally by the correction loop up to its retry bound.
	ErrExecution = errors.New("execution failed")

	// ErrModelUnavailable means the language-model service is unreachable.
	ErrModelUnavailable = errors.New("language model unavailable")

	// ErrNotFound means a schema or table/view does not exist on the target.
	ErrNotFound = errors.New("not found")
)
