package mocks

import "errors"

// ErrSourceDown simulates an unreachable relational store.
var ErrSourceDown = errors.New("source unavailable")
