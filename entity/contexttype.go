package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/tldetector-oss/clock"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

// entity/route/route.go的依赖倒置
type IRouteIndex interface {
	// 用路径点序列构建空间索引，已构建后再次调用为空操作，空路径构建时panic
	Build(positions []RoutePosition)
	// 索引是否已构建
	Built() bool
	// 返回与(x, y)平面欧氏距离最近的路径下标，未构建时panic
	Nearest(x, y float64) int32
	// 返回下标对应的路径点，下标越界时panic
	At(index int32) RoutePosition
	// 路径点数量
	Len() int32
}

// entity/light/locator.go的依赖倒置
type ILightLocator interface {
	// 在灯快照中定位本帧相关的前方信号灯及其停车点路径下标，
	// 无相关灯时返回(NoStopIndex, nil)
	Locate(
		vehicleXYZ geometry.Point,
		vehicleIndex int32,
		lights []ObservedLight,
		stopLines []StopLine,
	) (stopIndex int32, light *ObservedLight)
}

// 分类器能力（外部协作者），将相机帧映射为离散灯色
type IClassifier interface {
	// 返回帧中信号灯的灯色，无法判定时返回LIGHT_STATE_UNSPECIFIED与错误
	Classify(frame *CameraFrame) (mapv2.LightState, error)
}

type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig
	RouteIndex() IRouteIndex
}
