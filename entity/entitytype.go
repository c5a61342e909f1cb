package entity

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// NoStopIndex 无需停车的哨兵值，表示当前帧没有需要停车的信号灯
const NoStopIndex = int32(-1)

// RoutePosition 路径点，带朝向的坐标，由其在Route中的下标唯一标识
type RoutePosition struct {
	XYZ     geometry.Point // 位置
	Heading float64        // 前进方向（atan2，弧度）
}

func (r RoutePosition) String() string {
	return fmt.Sprintf("RoutePosition{XYZ=%v, Heading=%v}", r.XYZ, r.Heading)
}

// ObservedLight 单个信号灯的观测快照
// 说明：每次快照投递时整体替换，不做增量合并，快照之间不保持灯的同一性
type ObservedLight struct {
	XYZ   geometry.Point   // 灯的位置
	State mapv2.LightState // 观测到的灯色，未知时为LIGHT_STATE_UNSPECIFIED
}

func (l ObservedLight) String() string {
	return fmt.Sprintf("ObservedLight{XYZ=%v, State=%v}", l.XYZ, l.State)
}

// StopLine 停车线，启动时从静态配置加载一次，进程生命周期内不变
// 说明：配置来源只有平面坐标，高程恒为0
type StopLine struct {
	XYZ geometry.Point
}

// CameraFrame 相机帧，触发一次检测循环
// 说明：Data为不透明的图像载荷，解码由分类器能力负责
type CameraFrame struct {
	Seq  int64   // 帧序号
	T    float64 // 帧时间（秒）
	Data []byte
}

// DetectionResult 单帧检测结果，每帧重新计算
type DetectionResult struct {
	Step      int32            // 产生该结果的帧序号
	StopIndex int32            // 停车点的路径下标，无需停车时为NoStopIndex
	State     mapv2.LightState // 去抖后的稳定灯色
}

func (r DetectionResult) String() string {
	return fmt.Sprintf("DetectionResult{Step=%d, StopIndex=%d, State=%v}", r.Step, r.StopIndex, r.State)
}
