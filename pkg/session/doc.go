/*
Package session serialises access to stored scenes.

A Manager hands out live scenes restored from a ports.SceneStore and commits
them back. Edits to the same scene id are serialised with a reference-counted
in-process mutex and, when configured, a distributed lock so several editor
replicas can share one store.
*/
package session
