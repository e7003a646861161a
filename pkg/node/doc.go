/*
Package node implements the node entity of the espalier editor.

A Node composes a user-supplied ports.DataModel, a connection table (State),
a layout (Geometry) and an optional ports.GraphicsObject. It listens to the
model's port and data notifications and keeps three things in step:

  - the number of entries per port type matches the model's port count;
  - every connection referenced by an entry records that entry's position
    as its port index on this node;
  - the geometry and the graphics object reflect the current port layout.

Connections are never owned by a node. Entries hold domain.ConnectionID
handles that are resolved through a ports.ConnectionLookup, typically the
scene that owns both nodes and connections.
*/
package node
