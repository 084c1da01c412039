package node

import "errors"

// ErrNoSuchNode is returned by any lookup (get_child, get_node, get_property
// on a removed node, ...) that cannot resolve its target.
var ErrNoSuchNode = errors.New("node: no such node")

// ErrNodeAlreadyExists is returned by add_child and rename_child on a name
// collision.
var ErrNodeAlreadyExists = errors.New("node: node already exists")

// ErrInvalidName is returned when a name (child or property) contains a '.',
// which is reserved as the path separator.
var ErrInvalidName = errors.New("node: name must not contain '.'")

// ErrNoSuchProperty is returned by GetProperty and GetBlob when the named
// property is absent. RemoveProperty reports an absent property by
// returning false instead.
var ErrNoSuchProperty = errors.New("node: no such property")

// ErrIncompatibleType is returned when a property's stored type cannot be
// converted to the type requested by the caller.
var ErrIncompatibleType = errors.New("node: incompatible property type")

// ErrRootTTL is returned by SetTimeToLive on the root node, which is never
// subject to expiry.
var ErrRootTTL = errors.New("node: root node cannot have a time to live")

// ErrNodeDeleted is returned by any operation on a node whose record has
// already been freed.
var ErrNodeDeleted = errors.New("node: node has been deleted")
