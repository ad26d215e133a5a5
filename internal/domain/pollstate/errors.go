package pollstate

import "errors"

var ErrStateNotFound = errors.New("poll state not found")
