package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceKind uint8

const (
	ServiceNotFound ServiceKind = iota + 1
	ServiceValidation
	ServiceIntegrity
	ServiceTemporary
	ServiceOperation
	ServiceInternal
)

func (k ServiceKind) String() string {
	switch k {
	case ServiceNotFound:
		return "not_found"
	case ServiceValidation:
		return "validation"
	case ServiceIntegrity:
		return "integrity"
	case ServiceTemporary:
		return "temporary"
	case ServiceOperation:
		return "operation"
	default:
		return "internal"
	}
}

type ServiceError struct {
	Kind  ServiceKind
	Msg   string
	cause error
}

func NewService(kind ServiceKind, msg string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Msg: msg, cause: cause}
}

func NotFound(msg string) *ServiceError   { return NewService(ServiceNotFound, msg, nil) }
func Validation(msg string) *ServiceError { return NewService(ServiceValidation, msg, nil) }

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("service %s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("service %s: %s", e.Kind, e.Msg)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// IsService reports whether err carries a ServiceError of the given kind.
func IsService(err error, kind ServiceKind) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == kind
}

// ServiceFromRepo translates a repository error into the service taxonomy.
func ServiceFromRepo(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}

	var re *RepoError
	if errors.As(err, &re) {
		switch re.Kind {
		case RepoNotFound:
			return NewService(ServiceNotFound, op, err)
		case RepoIntegrity:
			return NewService(ServiceIntegrity, op, err)
		case RepoConnection:
			return NewService(ServiceTemporary, op, err)
		case RepoMultipleResults, RepoOperation:
			return NewService(ServiceOperation, op, err)
		}
	}
	return NewService(ServiceInternal, op, err)
}

// ServiceFromStorage translates an object-storage error into the service
// taxonomy.
func ServiceFromStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}

	var sto *StorageError
	if errors.As(err, &sto) {
		switch sto.Kind {
		case StorageNotFound:
			return NewService(ServiceNotFound, op, err)
		case StorageConnection:
			return NewService(ServiceTemporary, op, err)
		case StorageAccessDenied, StorageInvalidState, StorageInternal, StorageOperation:
			return NewService(ServiceOperation, op, err)
		}
	}
	return NewService(ServiceInternal, op, err)
}

// HTTPStatus maps a service error to the status code the API returns.
func HTTPStatus(err error) int {
	var se *ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case ServiceNotFound:
		return http.StatusNotFound
	case ServiceValidation:
		return http.StatusBadRequest
	case ServiceIntegrity:
		return http.StatusConflict
	case ServiceTemporary:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
