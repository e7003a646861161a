package models

import (
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

type observerEntry struct {
	id       int
	observer ports.ModelObserver
}

// Base implements ports.DataModel.Observe and the matching emitters.
// Embed it in a model struct.
type Base struct {
	observers []observerEntry
	nextID    int
}

// Observe registers an observer and returns a function that unregisters it.
func (b *Base) Observe(o ports.ModelObserver) func() {
	id := b.nextID
	b.nextID++
	b.observers = append(b.observers, observerEntry{id: id, observer: o})

	return func() {
		for i, e := range b.observers {
			if e.id == id {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// snapshot protects emission against observers unregistering mid-dispatch.
func (b *Base) snapshot() []observerEntry {
	return append([]observerEntry(nil), b.observers...)
}

func (b *Base) EmitDataUpdated(index domain.PortIndex) {
	for _, e := range b.snapshot() {
		e.observer.DataUpdated(index)
	}
}

func (b *Base) EmitPortAdded(portType domain.PortType, index domain.PortIndex) {
	for _, e := range b.snapshot() {
		e.observer.PortAdded(portType, index)
	}
}

func (b *Base) EmitPortMoved(portType domain.PortType, oldIndex, newIndex domain.PortIndex) {
	for _, e := range b.snapshot() {
		e.observer.PortMoved(portType, oldIndex, newIndex)
	}
}

func (b *Base) EmitPortRemoved(portType domain.PortType, index domain.PortIndex) {
	for _, e := range b.snapshot() {
		e.observer.PortRemoved(portType, index)
	}
}

// decodeState decodes a saved model state into out.
// Numbers may arrive as float64 (JSON), int (YAML) or strings (query params).
func decodeState(state map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(state)
}
