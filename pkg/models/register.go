package models

import (
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/registry"
)

// DefaultSumInputs is the input count of a freshly created Sum.
const DefaultSumInputs = 2

// Register installs the reference models into reg.
func Register(reg *registry.Registry) {
	reg.Register(NumberSourceName, func() ports.DataModel { return NewNumberSource(0) })
	reg.Register(SumName, func() ports.DataModel { return NewSum(DefaultSumInputs) })
	reg.Register(DisplayName, func() ports.DataModel { return NewDisplay() })
}
