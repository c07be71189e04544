// Package apperrors provides the application error type used across deskhand
// services. It extends the standard error interface with error chaining,
// HTTP status codes, and message customization while staying compatible with
// errors.Is and errors.As.
package apperrors

// Error is the interface implemented by all deskhand application errors.
// All methods return Error to support method chaining.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped errors
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
