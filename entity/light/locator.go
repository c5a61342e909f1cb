// Package light 信号灯定位与远程信号灯源
//
// 定位器在每帧图像处理时确定车辆前方最近的信号灯及其停止线对应的路径点，
// 远程信号灯源通过RPC周期性拉取路口信号灯状态。
package light

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

// Locator 信号灯定位器
// 功能：在已知车辆位置与路径索引的前提下，筛选车辆前方容差距离内最近的信号灯，
// 并给出与之匹配的停止线的路径点下标作为停车目标
type Locator struct {
	ctx entity.ITaskContext
}

// NewLocator 创建信号灯定位器
func NewLocator(ctx entity.ITaskContext) *Locator {
	return &Locator{ctx: ctx}
}

// distance3D 计算两点三维欧氏距离
func distance3D(a, b geometry.Point) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Locate 定位车辆前方最近的信号灯
// 功能：
// 1. 在所有信号灯中取与车辆三维距离最近者，等距离时取序号较小者
// 2. 该信号灯须在车辆前方（路径点下标严格大于车辆下标）且距离严格小于容差，否则无目标
// 3. 取与该信号灯最近的停止线，其最近路径点下标即停车目标
// 参数：vehicleXYZ-车辆参考位置，vehicleIndex-车辆最近路径点下标，
// lights-当前信号灯观测，stopLines-停止线位置
// 返回：停车目标路径点下标（无目标时为NoStopIndex）与对应信号灯（无目标时为nil）
func (l *Locator) Locate(
	vehicleXYZ geometry.Point, vehicleIndex int32,
	lights []entity.ObservedLight, stopLines []entity.StopLine,
) (int32, *entity.ObservedLight) {
	if len(lights) == 0 || len(stopLines) == 0 {
		return entity.NoStopIndex, nil
	}
	index := l.ctx.RouteIndex()

	nearest := -1
	nearestDistance := mathutil.INF
	for i := range lights {
		if d := distance3D(vehicleXYZ, lights[i].XYZ); d < nearestDistance {
			nearest = i
			nearestDistance = d
		}
	}
	light := &lights[nearest]
	lightIndex := index.Nearest(light.XYZ.X, light.XYZ.Y)
	if lightIndex <= vehicleIndex {
		return entity.NoStopIndex, nil
	}
	if nearestDistance >= l.ctx.RuntimeConfig().ToleranceDistance {
		log.Debugf(
			"light at route index %d is %vm ahead, beyond tolerance",
			lightIndex, nearestDistance,
		)
		return entity.NoStopIndex, nil
	}

	nearestLine := 0
	nearestLineDistance := mathutil.INF
	for i := range stopLines {
		if d := distance3D(light.XYZ, stopLines[i].XYZ); d < nearestLineDistance {
			nearestLine = i
			nearestLineDistance = d
		}
	}
	line := stopLines[nearestLine]
	return index.Nearest(line.XYZ.X, line.XYZ.Y), light
}
