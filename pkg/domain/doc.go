/*
Package domain contains the core value types of the espalier node-graph editor.

It defines the vocabulary shared by nodes, scenes, stores and adapters: port
types and indices, connection handles, node data, 2D geometry, persisted
records and lifecycle hooks. This package is kept pure and free of external
dependencies like I/O or rendering, following Hexagonal Architecture
principles.

# Key Entities

  - PortType / PortIndex: Identify a typed input or output slot on a node.
  - ConnectionID: A stable handle to a connection owned by a scene registry.
  - NodeData / NodeDataType: The payload flowing along connections.
  - Transform: The 2D affine transform between scene and node coordinates.
  - NodeRecord / SceneRecord: The persisted shape of nodes and scenes.
  - NodeHooks: Callbacks for observability of port and data events.
*/
package domain
