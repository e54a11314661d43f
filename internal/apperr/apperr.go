package apperr

import (
	"errors"
	"fmt"
)

// Kind classe les échecs métier pour que la couche HTTP puisse choisir
// le bon statut et un message explicable au client.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPrecondition
	KindExpired
	KindLimitReached
	KindNotConfigured
	KindIntegrity
	KindMalformed
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf retourne le Kind d'une erreur, ou 0 si ce n'est pas une erreur métier.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
