package synth

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed matches every *GenerationError with errors.Is.
var ErrGenerationFailed = errors.New("generation failed")

// Code distinguishes why generation failed.
type Code string

const (
	CodeModelUnavailable    Code = "model_unavailable"
	CodeNoJSONFound         Code = "no_json_found"
	CodeUnterminatedJSON    Code = "unterminated_json"
	CodeInvalidJSON         Code = "invalid_json"
	CodeMissingField        Code = "missing_field"
	CodeNoSolutionsProduced Code = "no_solutions_produced"
)

// GenerationError is returned for any unrecoverable synthesis step.
type GenerationError struct {
	Code   Code
	Detail string
	Cause  error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Detail)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// Is reports ErrGenerationFailed as a match so callers need not know the code.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

func newError(code Code, detail string, cause error) *GenerationError {
	return &GenerationError{Code: code, Detail: detail, Cause: cause}
}

// CodeOf returns the code of a *GenerationError in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
