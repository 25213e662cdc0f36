package errors

import stderrors "errors"

// Error carries a Code for status mapping and localized copy. Message and
// Cause are for logs; Metadata fills the placeholders of the localized text.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so sentinels compare by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// New returns an error with code and a log message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata returns an error whose localized copy is filled from metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap attaches code to cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func first(err error) *Error {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}
	return nil
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	if coded := first(err); coded != nil {
		return coded.Code
	}
	return CodeUnknown
}

// MetadataOf returns the metadata of the outermost *Error in err's chain.
func MetadataOf(err error) map[string]string {
	if coded := first(err); coded != nil {
		return coded.Metadata
	}
	return nil
}

// HTTPStatus returns the response status for err.
func HTTPStatus(err error) int {
	return CodeOf(err).HTTPStatus()
}
