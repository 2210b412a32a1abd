package repository

import "errors"

// ErrNotFound is returned by single-row lookups that match no record.
var ErrNotFound = errors.New("repository: not found")

// ErrVersionConflict is returned when an optimistic-concurrency write's
// expected version does not match the stored version.
var ErrVersionConflict = errors.New("repository: version conflict")

// ErrStatusRegression is returned when a Digest.status write would violate
// the pipeline's state machine (a contract violation per spec error taxonomy).
// AppendClip also returns it for a clip whose endSec does not exceed its
// startSec or that overlaps a persisted clip of the same episode.
var ErrStatusRegression = errors.New("repository: status regression")
