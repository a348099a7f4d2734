package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViolation_Excess(t *testing.T) {
	v := Violation{SpeedKmh: 45.5, SpeedLimitKmh: 30}
	assert.InDelta(t, 15.5, v.Excess(), 1e-9)
}
