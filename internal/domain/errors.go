package domain

import "fmt"

// ConfigurationError reports missing operator credentials or node configuration.
// Fatal to the operation; never retried.
type ConfigurationError struct {
	msg string
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string { return e.msg }

// ValidationError reports malformed or semantically invalid caller input.
type ValidationError struct {
	msg string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.msg }

// NetworkError reports a transport failure or an upstream-reported error
// during an HTTP or RPC call. The upstream reason is embedded in the message.
type NetworkError struct {
	// StatusCode is the upstream HTTP status when one was received, else 0.
	StatusCode int

	msg   string
	cause error
}

func NewNetworkError(cause error, format string, args ...any) *NetworkError {
	return &NetworkError{msg: fmt.Sprintf(format, args...), cause: cause}
}

func NewHTTPStatusError(status int, format string, args ...any) *NetworkError {
	return &NetworkError{StatusCode: status, msg: fmt.Sprintf(format, args...)}
}

func (e *NetworkError) Error() string { return e.msg }

func (e *NetworkError) Unwrap() error { return e.cause }

// NotFoundError reports a well-formed request whose target resource does not
// exist at the queried endpoint. Distinct from NetworkError because it is not
// necessarily transient.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(format string, args ...any) *NotFoundError {
	return &NotFoundError{msg: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string { return e.msg }

// RPCError reports a JSON-RPC envelope carrying an explicit error object or
// missing its result field.
type RPCError struct {
	Code int
	msg  string
}

func NewRPCError(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, msg: fmt.Sprintf(format, args...)}
}

func (e *RPCError) Error() string { return e.msg }
