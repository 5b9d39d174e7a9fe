package transact

import (
	"errors"
	"net/http"
)

var (
	// ErrAuthNeeded reports that the server demanded authentication and no
	// acceptable credentials could be produced.
	ErrAuthNeeded = errors.New("authentication required")
	// ErrPermission reports that the server refused the operation for the
	// authenticated user.
	ErrPermission = errors.New("permission denied")
	// ErrNotExist reports that the resource does not exist on the server.
	ErrNotExist = errors.New("no such file or directory")
	// ErrNameTooLong reports that the request URI exceeded the server's
	// limit.
	ErrNameTooLong = errors.New("name too long")
	// ErrBusy reports that the resource is locked or a dependency failed.
	ErrBusy = errors.New("resource busy")
	// ErrNoSpace reports that the server is out of storage.
	ErrNoSpace = errors.New("no space left on server")
	// ErrInvalid reports an unexpected client-error status.
	ErrInvalid = errors.New("invalid operation")
	// ErrIO is the generic transport failure.
	ErrIO = errors.New("input/output error")
	// ErrCanceled reports that the user declined an authentication or
	// certificate-trust prompt. Mount treats this as user cancellation.
	ErrCanceled = errors.New("operation canceled by user")
	// ErrNotEmpty reports that a directory operation found children.
	ErrNotEmpty = errors.New("directory not empty")
	// ErrNoDevice reports that the server does not speak enough WebDAV to
	// be mounted.
	ErrNoDevice = errors.New("operation not supported by device")
	// ErrDeviceDown reports that the server connection is known down and
	// the engine is configured to fail fast instead of waiting it out.
	ErrDeviceDown = errors.New("device not configured")
)

// errRetry is the internal "run the whole transaction again" signal used
// after a granted TLS relaxation or a consumed transport-reset credit. It
// never escapes the send loop.
var errRetry = errors.New("retry transaction")

// StatusToError maps a final HTTP status to the local error domain. 2xx
// is success. 1xx and 3xx are unexpected here; redirects are either
// followed by the transport or intentionally surfaced by the caller.
func StatusToError(status int) error {
	switch status / 100 {
	case 2:
		return nil
	case 4:
		switch status {
		case http.StatusUnauthorized, http.StatusProxyAuthRequired:
			return ErrAuthNeeded
		case http.StatusPaymentRequired, http.StatusForbidden:
			return ErrPermission
		case http.StatusNotFound, http.StatusConflict, http.StatusGone:
			return ErrNotExist
		case http.StatusRequestURITooLong:
			return ErrNameTooLong
		case http.StatusLocked, http.StatusFailedDependency:
			return ErrBusy
		default:
			return ErrInvalid
		}
	case 5:
		if status == http.StatusInsufficientStorage {
			return ErrNoSpace
		}
		return ErrNotExist
	case 1, 3:
		return ErrNotExist
	default:
		return ErrIO
	}
}
