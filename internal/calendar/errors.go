package calendar

import "errors"

// ErrQuery means the events call failed or returned a body that could not be decoded.
var ErrQuery = errors.New("calendar query failed")
