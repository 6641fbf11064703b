package plant

import (
	"errors"
	"fmt"
)

// Domain errors for plant construction and validation.
var (
	// ErrUnknownNode indicates a connection referencing a node id that is not
	// present in the corresponding node map.
	ErrUnknownNode = errors.New("plant: connection references unknown node")

	// ErrInvalidVolume indicates a flow node with a non-positive volume.
	ErrInvalidVolume = errors.New("plant: flow node volume must be positive")

	// ErrNegativeInventory indicates negative mass or gas inventory at construction.
	ErrNegativeInventory = errors.New("plant: negative mass or gas inventory")

	// ErrInvalidState indicates a non-finite value somewhere in the state.
	ErrInvalidState = errors.New("plant: invalid state (NaN or Inf detected)")

	// ErrUnknownComponent indicates an administrative action on a missing component.
	ErrUnknownComponent = errors.New("plant: unknown component")
)

// TopologyError reports a malformed reference in the plant graph.
type TopologyError struct {
	Kind         string
	ConnectionID string
	NodeID       string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("plant: %s connection %q references unknown node %q", e.Kind, e.ConnectionID, e.NodeID)
}

func (e *TopologyError) Unwrap() error {
	return ErrUnknownNode
}
