// Package repository defines the storage contracts consumed by the
// catalog and booking services together with their MySQL implementation.
// The sentinel values below let higher layers distinguish between failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.  Services
// translate this into a NotFound domain error naming the missing entity.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key,
// such as two courts sharing a name.
var ErrDuplicate = errors.New("duplicate")

// ErrReferenced is returned when a delete is refused because dependent rows
// still point at the target (a court with reservations).
var ErrReferenced = errors.New("referenced")
