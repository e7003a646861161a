/*
Package observability turns node lifecycle hooks into Prometheus metrics.

Metrics.Hooks returns a domain.NodeHooks that can be merged with logging hooks
and passed to a scene; every node of that scene then reports port mutations,
data propagation, connection-removal signals and notification errors.
*/
package observability
