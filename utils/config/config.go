package config

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

const (
	// DefaultToleranceDistance 信号灯相关性判定的默认最大直线距离
	DefaultToleranceDistance = 300.0
	// DefaultStateCountThreshold 灯色去抖的默认阈值
	DefaultStateCountThreshold = int32(3)
)

// RuntimeConfig 运行时配置
// 功能：存储检测任务运行时的配置信息，完成默认值填充与停车线校验
// 说明：将YAML配置转换为运行时可用的配置对象
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置

	ToleranceDistance   float64          // 信号灯相关性判定距离
	StateCountThreshold int32            // 去抖阈值
	StopLines           []geometry.Point // 校验后的停车线位置（Z恒为0）
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，进行配置验证与默认值填充
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
// 说明：停车线列表缺失或为空属于致命配置错误，进程拒绝启动
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control

	rc.ToleranceDistance = config.Control.ToleranceDistance
	if rc.ToleranceDistance == 0 {
		rc.ToleranceDistance = DefaultToleranceDistance
	}
	if rc.ToleranceDistance < 0 {
		log.Panicf("tolerance_distance must be positive, got %v", rc.ToleranceDistance)
	}
	rc.StateCountThreshold = config.Control.StateCountThreshold
	if rc.StateCountThreshold == 0 {
		rc.StateCountThreshold = DefaultStateCountThreshold
	}
	if rc.StateCountThreshold < 0 {
		log.Panicf("state_count_threshold must be positive, got %v", rc.StateCountThreshold)
	}

	if len(config.Detection.StopLinePositions) == 0 {
		log.Panic("detection.stop_line_positions must not be empty")
	}
	rc.StopLines = lo.Map(config.Detection.StopLinePositions, func(p StopLinePosition, _ int) geometry.Point {
		return geometry.Point{X: p.X, Y: p.Y, Z: 0}
	})

	return rc
}
