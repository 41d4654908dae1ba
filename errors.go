package isokernel

import "errors"

// ErrNotFitted is returned when Transform, Similarity, or a clustering
// accessor is called before a successful Fit.
var ErrNotFitted = errors.New("isokernel: model is not fitted")
