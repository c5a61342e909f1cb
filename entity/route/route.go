// Package route 路径点空间索引
//
// 车辆路径一经下发即固定，首次收到非空路径时构建一次k-d树索引，
// 此后所有最近路径点查询均在该索引上进行。
package route

import (
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/container"
)

// RouteIndex 路径点最近邻索引
// 说明：Build之前调用查询接口属于使用错误；索引构建后不可再变
type RouteIndex struct {
	positions []entity.RoutePosition
	tree      *container.KDTree
}

// New 创建空的路径索引
func New() *RouteIndex {
	return &RouteIndex{}
}

// Build 由路径点序列构建索引
// 功能：对路径点的XY平面坐标构建k-d树，下标即路径点序号
// 说明：已构建后再次调用为空操作；空路径构建直接panic
func (r *RouteIndex) Build(positions []entity.RoutePosition) {
	if r.tree != nil {
		log.Debug("route index is already built, ignore rebuild")
		return
	}
	if len(positions) == 0 {
		log.Panic("cannot build route index from empty route")
	}
	r.positions = make([]entity.RoutePosition, len(positions))
	copy(r.positions, positions)
	points := lo.Map(r.positions, func(p entity.RoutePosition, i int) container.KDPoint {
		return container.KDPoint{X: p.XYZ.X, Y: p.XYZ.Y, ID: int32(i)}
	})
	r.tree = container.NewKDTree(points)
	log.Debugf("route index built with %d positions", len(r.positions))
}

// Built 索引是否已构建
func (r *RouteIndex) Built() bool {
	return r.tree != nil
}

// Nearest 查询与(x, y)平面距离最近的路径点下标
// 说明：等距离时返回下标较小者
func (r *RouteIndex) Nearest(x, y float64) int32 {
	if r.tree == nil {
		log.Panicf("nearest query (%v, %v) before route index is built", x, y)
	}
	return r.tree.Nearest(x, y).ID
}

// At 获取下标对应的路径点
func (r *RouteIndex) At(index int32) entity.RoutePosition {
	if r.tree == nil {
		log.Panicf("position query %d before route index is built", index)
	}
	return r.positions[index]
}

// Len 获取路径点数量
func (r *RouteIndex) Len() int32 {
	return int32(len(r.positions))
}
