/*
Package espalier is the node core of a dataflow node-graph editor.

A scene holds nodes, each wrapping a data model with typed input and output
ports, and the connections wired between them. Data flows from output ports
to input ports whenever a model reports new output. Dynamic models (like Sum)
can insert, move and remove ports at runtime; the node keeps its per-port
connection bookkeeping in step and drops connections whose port disappears.

# Layout

  - pkg/node: the node entity (port entries, geometry, data propagation, save/restore).
  - pkg/scene: the connection registry nodes resolve connection handles against.
  - pkg/models: reference models (number, sum, display).
  - pkg/session: locked load/modify/commit of stored scenes.
  - pkg/adapters: scene stores (memory, file, redis, loam), the headless canvas,
    and the HTTP and MCP surfaces.

# Usage

	editor, err := espalier.New()
	if err != nil {
		log.Fatal(err)
	}

	s := editor.NewScene()
	a, _ := s.CreateNode(models.NewNumberSource(4))
	out, _ := s.CreateNode(models.NewDisplay())
	_, _ = s.CreateConnection(a.ID(), 0, out.ID(), 0)

	if err := editor.Sessions().Commit(ctx, "demo", s); err != nil {
		log.Fatal(err)
	}
*/
package espalier
