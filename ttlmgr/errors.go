package ttlmgr

import "errors"

// ErrEmptyPath is returned by SetTimeToRemove when given a zero-length path,
// which can never name a real node (every node's path includes itself).
var ErrEmptyPath = errors.New("ttlmgr: path must not be empty")
