package apperror

import "errors"

var (
	ErrInvalidMove        = errors.New("invalid move")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrMatchFull          = errors.New("match already has two players")
	ErrMatchNotFound      = errors.New("match not found")
	ErrUnauthorized       = errors.New("session is not part of this match")
	ErrMissingJoinTarget  = errors.New("observer must provide a match id")
	ErrMissingConnection  = errors.New("no connection to deliver pairing to")
	ErrMatchIDUnavailable = errors.New("could not allocate a match id")
)
