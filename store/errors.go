package store

import (
	"errors"

	"github.com/joshuapare/nodestore/node"
	"github.com/joshuapare/nodestore/volume"
)

// ErrNotMounted is returned when a path has no covering mount.
var ErrNotMounted = errors.New("store: path is not mounted")

// Kind classifies a failure into the five categories spec.md §7 defines, so
// a caller can react to the category of failure without matching every
// concrete sentinel from node, volume, and bptree.
type Kind int

const (
	KindIO Kind = iota
	KindLogic
	KindNoSuchNode
	KindNodeAlreadyExists
	KindTooLargeNode
)

// Classify walks err's wrapped chain and returns the Kind a caller should
// treat it as.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindLogic
	case errors.Is(err, node.ErrNoSuchNode), errors.Is(err, ErrNotMounted):
		return KindNoSuchNode
	case errors.Is(err, node.ErrNodeAlreadyExists):
		return KindNodeAlreadyExists
	case errors.Is(err, volume.ErrTooLargeNode):
		return KindTooLargeNode
	case errors.Is(err, node.ErrInvalidName),
		errors.Is(err, node.ErrNoSuchProperty),
		errors.Is(err, node.ErrIncompatibleType),
		errors.Is(err, node.ErrRootTTL),
		errors.Is(err, node.ErrNodeDeleted):
		return KindLogic
	default:
		return KindIO
	}
}
