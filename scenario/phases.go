package scenario

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

// stateNames 配置文件中灯色名到灯色的映射
var stateNames = map[string]mapv2.LightState{
	"unknown": mapv2.LightState_LIGHT_STATE_UNSPECIFIED,
	"red":     mapv2.LightState_LIGHT_STATE_RED,
	"yellow":  mapv2.LightState_LIGHT_STATE_YELLOW,
	"green":   mapv2.LightState_LIGHT_STATE_GREEN,
}

// phase 固定程序中的一个相位
type phase struct {
	state    mapv2.LightState
	duration float64
}

// phasedLight 按固定相位程序运行的场景信号灯
// 说明：相位循环执行，时长在配置加载时校验为正
type phasedLight struct {
	xyz    geometry.Point
	phases []phase

	step       int32   // 当前相位索引
	remainingT float64 // 当前相位剩余时间
}

// newPhasedLight 由场景配置创建信号灯
// 说明：灯色名未知或相位时长非正属于配置错误，直接panic
func newPhasedLight(cfg config.ScenarioLight) *phasedLight {
	if len(cfg.Phases) == 0 {
		log.Panicf("scenario light at (%v, %v) has no phases", cfg.X, cfg.Y)
	}
	phases := lo.Map(cfg.Phases, func(p config.ScenarioPhase, _ int) phase {
		state, ok := stateNames[p.State]
		if !ok {
			log.Panicf("unknown light state name %q", p.State)
		}
		if p.Duration <= 0 {
			log.Panicf("phase duration must be positive, got %v", p.Duration)
		}
		return phase{state: state, duration: p.Duration}
	})
	return &phasedLight{
		xyz:        geometry.Point{X: cfg.X, Y: cfg.Y, Z: cfg.Z},
		phases:     phases,
		step:       0,
		remainingT: phases[0].duration,
	}
}

// update 推进相位时间
// 说明：剩余时间耗尽时循环切换到下一个相位，跨多个相位时连续切换
func (l *phasedLight) update(dt float64) {
	l.remainingT -= dt
	for l.remainingT <= 0 {
		l.step = (l.step + 1) % int32(len(l.phases))
		l.remainingT += l.phases[l.step].duration
	}
}

// observed 获取当前观测
func (l *phasedLight) observed() entity.ObservedLight {
	return entity.ObservedLight{
		XYZ:   l.xyz,
		State: l.phases[l.step].state,
	}
}
