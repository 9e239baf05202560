package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrNotConnected    = errors.New("broker not connected")
	ErrInvalidOrder    = errors.New("invalid order parameters")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrContextDone     = errors.New("context cancelled")
)
