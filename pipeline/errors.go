package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ruteri/blob-encryption-service/common"
)

// SuccessMessage is returned to the caller when the encrypted file was stored.
const SuccessMessage = "Success, file was encrypted and stored in GCS."

// Kind classifies the outcome of an invocation.
type Kind string

const (
	Success         Kind = "Success"
	ConfigError     Kind = "ConfigError"
	SecretError     Kind = "SecretError"
	TransferError   Kind = "TransferError"
	EncryptionError Kind = "EncryptionError"

	// InternalError covers errors that did not come out of a pipeline stage.
	InternalError Kind = "InternalError"
)

// Stage names a state of the pipeline state machine.
type Stage string

const (
	StageParsingPath        Stage = "parsing_path"
	StageLoadingConfig      Stage = "loading_config"
	StageResolvingSecrets   Stage = "resolving_secrets"
	StageReadingSource      Stage = "reading_source"
	StageEncrypting         Stage = "encrypting"
	StageWritingDestination Stage = "writing_destination"
	StageDone               Stage = "done"
)

// Error is the failure of a single pipeline stage.
type Error struct {
	Kind  Kind
	Stage Stage
	Op    string // what was attempted, with identifying names but no secret values
	Err   error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(kind Kind, stage Stage, err error, op string, args ...any) *Error {
	return &Error{
		Kind:  kind,
		Stage: stage,
		Op:    fmt.Sprintf(op, args...),
		Err:   err,
	}
}

// redactedError is err with secret values removed from its text.
type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// redact hides the values registered in ctx from the text of err. The error
// chain is preserved for errors.Is and errors.As.
func redact(ctx context.Context, err error) error {
	msg := common.Redact(ctx, err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedError{err: err, msg: msg}
}

// Outcome is what the caller of an invocation gets back.
type Outcome struct {
	Kind    Kind
	Stage   Stage
	Status  int
	Message string
	Err     error
}

// Body returns the response document: {"message": ...} on success,
// {"error": ...} otherwise.
func (o Outcome) Body() map[string]string {
	if o.Kind == Success {
		return map[string]string{"message": o.Message}
	}
	return map[string]string{"error": o.Message}
}

// OutcomeFor maps the result of an invocation to its outcome.
func OutcomeFor(err error) Outcome {
	if err == nil {
		return Outcome{
			Kind:    Success,
			Stage:   StageDone,
			Status:  http.StatusOK,
			Message: SuccessMessage,
		}
	}

	var pErr *Error
	if !errors.As(err, &pErr) {
		return Outcome{
			Kind:    InternalError,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Internal error: %v", err),
			Err:     err,
		}
	}

	outcome := Outcome{
		Kind:   pErr.Kind,
		Stage:  pErr.Stage,
		Status: http.StatusInternalServerError,
		Err:    err,
	}

	switch pErr.Kind {
	case ConfigError:
		if pErr.Stage == StageParsingPath {
			outcome.Status = http.StatusBadRequest
			outcome.Message = fmt.Sprintf("Invalid configuration path: %v", err)
		} else {
			outcome.Message = fmt.Sprintf("Failed to fetch configuration or secrets: %v", err)
		}
	case SecretError:
		outcome.Message = fmt.Sprintf("Failed to fetch configuration or secrets: %v", err)
	case TransferError:
		if pErr.Stage == StageWritingDestination {
			outcome.Message = fmt.Sprintf("Failed to store encrypted file: %v", err)
		} else {
			outcome.Message = fmt.Sprintf("Failed to read source file: %v", err)
		}
	case EncryptionError:
		outcome.Message = fmt.Sprintf("Encryption failed: %v", err)
	default:
		outcome.Kind = InternalError
		outcome.Message = fmt.Sprintf("Internal error: %v", err)
	}

	return outcome
}
