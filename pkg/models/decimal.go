package models

import (
	"strconv"

	"github.com/aretw0/espalier/pkg/domain"
)

// DecimalType is the data type shared by all reference models.
var DecimalType = domain.NodeDataType{ID: "decimal", Name: "Decimal"}

// Decimal is a floating point payload.
type Decimal struct {
	Value float64
}

func (Decimal) Type() domain.NodeDataType { return DecimalType }

func (d Decimal) String() string {
	return strconv.FormatFloat(d.Value, 'g', -1, 64)
}

// asDecimal extracts a Decimal from node data. Pointer payloads are accepted too.
func asDecimal(data domain.NodeData) (Decimal, bool) {
	switch v := data.(type) {
	case Decimal:
		return v, true
	case *Decimal:
		if v != nil {
			return *v, true
		}
	}
	return Decimal{}, false
}
