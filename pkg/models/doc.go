// Package models provides reference data models for the espalier editor:
// a number source, a sum with a dynamic number of inputs, and a display sink.
// Base carries the observer bookkeeping every model needs.
package models
