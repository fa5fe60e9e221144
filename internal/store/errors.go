package store

import "errors"

// ErrNotFound indicates a missing row or an owner-scoped lookup that
// resolved to someone else's row; the two cases are intentionally
// indistinguishable.
var ErrNotFound = errors.New("record not found")
