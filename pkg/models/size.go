package models

import (
	"math"

	"github.com/dustin/go-humanize"
)

type SizeUnit int

const (
	UnitBytes SizeUnit = iota
	UnitKB
	UnitMB
	UnitGB
)

func (u SizeUnit) multiplier() float64 {
	switch u {
	case UnitKB:
		return 1 << 10
	case UnitMB:
		return 1 << 20
	case UnitGB:
		return 1 << 30
	default:
		return 1
	}
}

func (u SizeUnit) String() string {
	switch u {
	case UnitKB:
		return "K"
	case UnitMB:
		return "M"
	case UnitGB:
		return "G"
	default:
		return ""
	}
}

// Size is an amount tagged with its unit. It is built once where the value
// is measured and turned into a byte count before any aggregation.
type Size struct {
	Amount float64
	Unit   SizeUnit
}

// UnknownSize marks an item whose size was never measured.
var UnknownSize = Size{Amount: -1, Unit: UnitBytes}

func SizeOf(n int64) Size {
	return Size{Amount: float64(n), Unit: UnitBytes}
}

func (s Size) Known() bool {
	return s.Amount >= 0
}

// Bytes returns the canonical byte count, zero for an unknown size.
func (s Size) Bytes() int64 {
	if !s.Known() {
		return 0
	}
	return int64(math.Round(s.Amount * s.Unit.multiplier()))
}

func (s Size) String() string {
	if !s.Known() {
		return "-"
	}
	return humanize.IBytes(uint64(s.Bytes()))
}
