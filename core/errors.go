package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is recoverable: it is shown to the user who may correct the input and retry.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// Messages returns every field message, in the order they were reported.
func (err ValidationError) Messages() []string {
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Error)
	}
	return msgs
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// ConfigurationError reports missing transport credentials.
// It blocks the submit action only, never the rest of the wizard.
type ConfigurationError struct {
	Key string
}

func NewConfigurationError(key string) error {
	return &ConfigurationError{Key: key}
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q is not set", err.Key)
}

func IsConfigurationError(err error) bool {
	var cErr *ConfigurationError
	return errors.As(err, &cErr)
}

// DispatchError reports a failure to send the submission notifications.
type DispatchError struct {
	Recipient string
	Err       error
}

func NewDispatchError(recipient string, err error) error {
	return &DispatchError{Recipient: recipient, Err: err}
}

func (err DispatchError) Error() string {
	return fmt.Sprintf("sending email to %s: %v", err.Recipient, err.Err)
}

func (err DispatchError) Unwrap() error { return err.Err }

func IsDispatchError(err error) bool {
	var dErr *DispatchError
	return errors.As(err, &dErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
