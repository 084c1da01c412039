package serialize

import "errors"

// ErrTruncated is returned when a Read call needs more bytes than remain in
// the reader's buffer.
var ErrTruncated = errors.New("serialize: truncated input")

// ErrUnknownTag names the case of a tagged union's tag index that matches no
// variant. Nothing in this package returns it: ReadTag accepts any index,
// and a caller decoding a union checks the index itself.
var ErrUnknownTag = errors.New("serialize: unknown tag index")
