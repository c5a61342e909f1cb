package detector

import (
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

const (
	red    = mapv2.LightState_LIGHT_STATE_RED
	green  = mapv2.LightState_LIGHT_STATE_GREEN
	yellow = mapv2.LightState_LIGHT_STATE_YELLOW
)

func TestDebouncerHoldsUntilStable(t *testing.T) {
	d := NewDebouncer(3)
	assert.Equal(t, entity.NoStopIndex, d.Published())

	// 红灯需连续出现超过阈值次才被采纳
	assert.Equal(t, entity.NoStopIndex, d.Update(red, 18))
	assert.Equal(t, entity.NoStopIndex, d.Update(red, 18))
	assert.Equal(t, entity.NoStopIndex, d.Update(red, 18))
	assert.Equal(t, int32(18), d.Update(red, 18))
	assert.Equal(t, int32(18), d.Update(red, 18))
}

func TestDebouncerFlickerDoesNotChangeOutput(t *testing.T) {
	d := NewDebouncer(3)
	for i := 0; i < 4; i++ {
		d.Update(red, 18)
	}
	assert.Equal(t, int32(18), d.Published())

	// 单帧误检为绿不影响发布值，之后红灯重新计数
	assert.Equal(t, int32(18), d.Update(green, entity.NoStopIndex))
	assert.Equal(t, int32(18), d.Update(red, 18))
	assert.Equal(t, int32(18), d.Update(red, 18))
	assert.Equal(t, int32(18), d.Update(red, 18))
	assert.Equal(t, int32(18), d.Update(red, 18))
}

func TestDebouncerNonRedPublishesNoStop(t *testing.T) {
	d := NewDebouncer(3)
	for i := 0; i < 4; i++ {
		d.Update(red, 18)
	}
	// 绿灯稳定后停车目标被清除
	for i := 0; i < 3; i++ {
		assert.Equal(t, int32(18), d.Update(green, entity.NoStopIndex))
	}
	assert.Equal(t, entity.NoStopIndex, d.Update(green, entity.NoStopIndex))

	// 黄灯稳定同样不产生停车目标
	for i := 0; i < 4; i++ {
		d.Update(yellow, 30)
	}
	assert.Equal(t, entity.NoStopIndex, d.Published())
}

func TestDebouncerStopIndexChangeWhileRed(t *testing.T) {
	d := NewDebouncer(3)
	for i := 0; i < 4; i++ {
		d.Update(red, 18)
	}
	// 状态保持红灯时停车目标跟随输入更新
	assert.Equal(t, int32(20), d.Update(red, 20))
}
