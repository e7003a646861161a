/*
Package ports defines the driven ports (interfaces) of the espalier node core.

These interfaces decouple nodes and scenes from user-supplied data models,
from whatever toolkit draws the scene, and from storage backends.

# Key Interfaces

  - DataModel: The user-supplied processing unit owned by a node.
  - ModelObserver: Receives port and data notifications from a DataModel.
  - GraphicsObject: The node's presence in a rendered scene.
  - Connection / ConnectionLookup: Edges owned by a registry and addressed by handle.
  - SceneStore: Responsible for persisting and loading scene records.
  - DistributedLocker: Provides distributed locking for concurrent scene access.
*/
package ports
