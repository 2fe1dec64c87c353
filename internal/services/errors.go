package services

import (
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/pkg/errors"
)

// Sentinel errors returned by the services. Callers match them with
// errors.Is; the wrapped message is meant for the client.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// notFound maps a repository miss onto ErrNotFound with a readable message
// and wraps everything else as an internal failure.
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrap(ErrNotFound, what+" not found")
	}
	return errors.Wrapf(err, "load %s", what)
}

// Message returns the client-facing text of a service error: the outermost
// wrap message without the sentinel suffix.
func Message(err error) string {
	for _, sentinel := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, sentinel) {
			msg := err.Error()
			suffix := ": " + sentinel.Error()
			if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
				return msg[:len(msg)-len(suffix)]
			}
			return msg
		}
	}
	return err.Error()
}
