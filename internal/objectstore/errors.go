package objectstore

import "errors"

// ErrNotFound is returned by Get/Head when the key does not exist.
var ErrNotFound = errors.New("objectstore: not found")

// ErrTransient wraps errors the caller should retry with backoff (network
// timeouts, 5xx responses from the storage API).
var ErrTransient = errors.New("objectstore: transient")

// ErrFatal wraps errors that will not succeed on retry (bad credentials,
// malformed key, bucket missing).
var ErrFatal = errors.New("objectstore: fatal")
