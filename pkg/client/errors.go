package client

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedMethod is returned when the HTTP verb is neither GET nor POST.
var ErrUnsupportedMethod = errors.New("unsupported http method")

// ErrorClass represents a classification of failed calls.
type ErrorClass string

const (
	// ErrorClassRemote is an error reported by Bitrix24 in the response envelope.
	ErrorClassRemote ErrorClass = "remote"

	// ErrorClassTransport represents network/timeout errors.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassDecode is a response body that is not a JSON envelope.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassRateLimit is QUERY_LIMIT_EXCEEDED.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassAuth covers rejected or unresolvable credentials.
	ErrorClassAuth ErrorClass = "auth"
)

// Bitrix24 error codes with a dedicated class.
const (
	CodeQueryLimitExceeded = "QUERY_LIMIT_EXCEEDED"
	CodeExpiredToken       = "expired_token"
	CodeInvalidToken       = "invalid_token"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNoAuthFound        = "NO_AUTH_FOUND"
	CodeWrongAuthType      = "WRONG_AUTH_TYPE"
)

var authCodes = []string{
	CodeExpiredToken,
	CodeInvalidToken,
	CodeInvalidCredentials,
	CodeNoAuthFound,
	CodeWrongAuthType,
}

// ClassifyCode maps a Bitrix24 error code to an ErrorClass. Codes are
// compared case-insensitively; portals differ in how they spell token errors.
func ClassifyCode(code string) ErrorClass {
	if strings.EqualFold(code, CodeQueryLimitExceeded) {
		return ErrorClassRateLimit
	}
	for _, c := range authCodes {
		if strings.EqualFold(code, c) {
			return ErrorClassAuth
		}
	}
	return ErrorClassRemote
}

// ApiError is the single failure kind of a remote call. Message is the text
// presented to the user: error_description when Bitrix24 sent one, otherwise
// the error code, otherwise a description of the local failure.
type ApiError struct {
	Class      ErrorClass
	Code       string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ApiError) Unwrap() error {
	return e.Err
}

// IsClass reports whether err is an ApiError of the given class.
func IsClass(err error, class ErrorClass) bool {
	var apiErr *ApiError
	return errors.As(err, &apiErr) && apiErr.Class == class
}
