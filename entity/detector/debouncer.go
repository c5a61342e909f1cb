package detector

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

// Debouncer 分类结果消抖器
// 功能：抑制分类结果的瞬时抖动，只有同一原始状态连续出现达到阈值后，
// 对外发布的停车目标才会更新
// 说明：只有红灯产生停车目标，其他稳定状态一律发布NoStopIndex
type Debouncer struct {
	threshold int32

	state         mapv2.LightState // 最近一次的原始状态
	count         int32            // 原始状态连续出现的次数
	lastStopIndex int32            // 当前对外发布的停车目标
}

// NewDebouncer 创建消抖器
// 参数：threshold-状态稳定所需的连续次数阈值
func NewDebouncer(threshold int32) *Debouncer {
	return &Debouncer{
		threshold:     threshold,
		state:         mapv2.LightState_LIGHT_STATE_UNSPECIFIED,
		lastStopIndex: entity.NoStopIndex,
	}
}

// Update 输入一次原始检测结果
// 功能：
// 1. 原始状态变化时清零计数，发布值保持不变
// 2. 原始状态已连续出现阈值次后，采纳本次输入：红灯发布停车目标，否则发布NoStopIndex
// 3. 其余情况继续发布上次采纳的结果
// 参数：state-本帧原始状态，stopIndex-本帧停车目标
// 返回：对外发布的停车目标路径点下标
func (d *Debouncer) Update(state mapv2.LightState, stopIndex int32) int32 {
	if d.state != state {
		d.count = 0
		d.state = state
	} else if d.count >= d.threshold {
		if state != mapv2.LightState_LIGHT_STATE_RED {
			stopIndex = entity.NoStopIndex
		}
		d.lastStopIndex = stopIndex
	}
	d.count++
	return d.lastStopIndex
}

// Published 获取当前对外发布的停车目标
func (d *Debouncer) Published() int32 {
	return d.lastStopIndex
}
