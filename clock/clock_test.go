package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

func TestClockStep(t *testing.T) {
	c := New(config.ControlStep{Start: 10, Total: 5, Interval: 0.1})
	assert.Equal(t, int32(10), c.InternalStep)
	assert.InDelta(t, 1.0, c.T, 1e-9)
	assert.False(t, c.Done())

	for i := 0; i < 5; i++ {
		c.Step()
	}
	assert.Equal(t, int32(15), c.InternalStep)
	assert.True(t, c.Done())
}

func TestClockTimeFormat(t *testing.T) {
	c := New(config.ControlStep{Start: 36610, Total: 100, Interval: 1})
	assert.Equal(t, "10:10:10", c.String())
	hour, minute, second := c.GetHourMinuteSecond()
	assert.Equal(t, 10, hour)
	assert.Equal(t, 10, minute)
	assert.InDelta(t, 10.0, second, 1e-9)
}
