package volume

import "errors"

// ErrBadMagic is returned by Open when the file's header signature does not
// match the expected "HKEY" magic.
var ErrBadMagic = errors.New("volume: bad magic signature")

// ErrUnsupportedVersion is returned by Open when the header's version field
// is not one this package understands.
var ErrUnsupportedVersion = errors.New("volume: unsupported version")

// ErrTooLargeNode is returned by Allocate/Resize when a payload exceeds the
// largest configured size class (spec.md §3, §4.2, §7).
var ErrTooLargeNode = errors.New("volume: record exceeds largest size class")

// ErrCorrupt is returned when on-disk structures (free lists, control
// blocks) fail an internal consistency check.
var ErrCorrupt = errors.New("volume: corrupt control structure")

// ErrClosed is returned by Allocate, Write, Read, Resize, Free and Sync on a
// File after Close.
var ErrClosed = errors.New("volume: file is closed")
