package user

import "errors"

var (
	ErrActorMissing = errors.New("authenticated actor is missing from context")
)
