package commands

import (
	"context"
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

const (
	commandValidationCode   = "COMMAND_VALIDATION_FAILED"
	commandContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	commandContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	commandContextErrorCode = "COMMAND_CONTEXT_ERROR"
	commandExecuteFailed    = "COMMAND_EXECUTION_FAILED"
)

// metaInvalidFields lists the message fields that failed validation.
const metaInvalidFields = "invalid_fields"

var contextErrors = []struct {
	target  error
	message string
	code    string
}{
	{context.Canceled, "command execution cancelled", commandContextCanceled},
	{context.DeadlineExceeded, "command execution deadline exceeded", commandContextTimeout},
}

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	wrapped := goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(commandValidationCode)
	if fields := invalidFields(err); len(fields) > 0 {
		wrapped = wrapped.WithMetadata(map[string]any{metaInvalidFields: fields})
	}
	return wrapped
}

// invalidFields returns the sorted field names of an ozzo validation failure.
func invalidFields(err error) []string {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	fields := make([]string, 0, len(fieldErrs))
	for name, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

func wrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	for _, candidate := range contextErrors {
		if errors.Is(err, candidate.target) {
			return goerrors.Wrap(err, goerrors.CategoryCommand, candidate.message).
				WithTextCode(candidate.code)
		}
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command context error").
		WithTextCode(commandContextErrorCode)
}

// wrapExecuteError tags plain errors. Errors that already carry a category,
// such as conversion failures, pass through unchanged.
func wrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	if isContextError(err) {
		return wrapContextError(err)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(commandExecuteFailed)
}
