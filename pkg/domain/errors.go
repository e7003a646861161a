package domain

import "errors"

// ErrPortIndexOutOfRange is returned when a port index does not address an existing entry.
var ErrPortIndexOutOfRange = errors.New("port index out of range")

// ErrInvalidPortType is returned when an operation receives PortNone.
var ErrInvalidPortType = errors.New("invalid port type")

// ErrNoGraphicsObject is returned when an operation needs a graphics object that is not attached yet.
var ErrNoGraphicsObject = errors.New("no graphics object attached")

// ErrSingularTransform is returned when a scene transform cannot be inverted.
var ErrSingularTransform = errors.New("singular transform")

// ErrNodeNotFound is returned when a node ID is not part of the scene.
var ErrNodeNotFound = errors.New("node not found")

// ErrConnectionNotFound is returned when a connection handle is not in the registry.
var ErrConnectionNotFound = errors.New("connection not found")

// ErrSceneNotFound is returned when a scene ID cannot be found in the store.
var ErrSceneNotFound = errors.New("scene not found")

// ErrModelNotRegistered is returned when a record names a model the registry does not know.
var ErrModelNotRegistered = errors.New("model not registered")

// ErrIncompatibleDataType is returned when connecting ports with different data types.
var ErrIncompatibleDataType = errors.New("incompatible data type")

// ErrInvariantViolated is returned by validation when port entries and connections disagree.
var ErrInvariantViolated = errors.New("invariant violated")

// ErrPortsNotDynamic is returned when a port mutation is requested on a model with a fixed layout.
var ErrPortsNotDynamic = errors.New("model ports are not dynamic")

// ErrCycleDetected is returned when a connection would feed a node's output back into itself.
var ErrCycleDetected = errors.New("connection would create a cycle")
