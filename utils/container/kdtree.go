package container

import (
	"log"
	"math"
	"sort"
)

// KDPoint 二维平面点，ID为点在外部序列中的下标
type KDPoint struct {
	X, Y float64
	ID   int32
}

// kdNode k-d树节点
// 说明：axis为该节点的切分维度，0为X，1为Y
type kdNode struct {
	point       KDPoint
	axis        int
	left, right *kdNode
}

// KDTree 二维k-d树
// 功能：对固定点集提供平均对数复杂度的最近邻查询
// 说明：构建后不可变；等距离时返回ID最小的点，保证查询结果确定
type KDTree struct {
	root *kdNode
	size int
}

// NewKDTree 由点集构建k-d树
// 功能：按切分维度取中位数递归构建平衡树
// 参数：points-点集，构建过程不修改传入切片
// 返回：构建完成的k-d树
func NewKDTree(points []KDPoint) *KDTree {
	pts := make([]KDPoint, len(points))
	copy(pts, points)
	return &KDTree{
		root: buildKD(pts, 0),
		size: len(pts),
	}
}

// buildKD 递归构建子树
// 算法说明：
// 1. 按当前切分维度排序，维度值相同时按ID排序保证构建结果确定
// 2. 取中位数作为节点，左右两侧递归构建子树
func buildKD(pts []KDPoint, depth int) *kdNode {
	if len(pts) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(pts, func(i, j int) bool {
		a, b := kdCoord(pts[i], axis), kdCoord(pts[j], axis)
		if a != b {
			return a < b
		}
		return pts[i].ID < pts[j].ID
	})
	mid := len(pts) / 2
	return &kdNode{
		point: pts[mid],
		axis:  axis,
		left:  buildKD(pts[:mid], depth+1),
		right: buildKD(pts[mid+1:], depth+1),
	}
}

func kdCoord(p KDPoint, axis int) float64 {
	if axis == 0 {
		return p.X
	}
	return p.Y
}

// Len 获取树中点的数量
func (t *KDTree) Len() int {
	return t.size
}

// Nearest 查询与(x, y)平面欧氏距离最近的点
// 功能：标准k-d树最近邻搜索，先入近侧子树，按切分面距离剪枝
// 返回：最近的点；等距离时为其中ID最小者
// 说明：空树查询属于使用错误，直接panic
func (t *KDTree) Nearest(x, y float64) KDPoint {
	if t.root == nil {
		log.Panic("nearest query on empty kd-tree")
	}
	best := t.root.point
	bestD := math.Inf(0)
	var search func(n *kdNode)
	search = func(n *kdNode) {
		if n == nil {
			return
		}
		dx, dy := x-n.point.X, y-n.point.Y
		d := dx*dx + dy*dy
		if d < bestD || (d == bestD && n.point.ID < best.ID) {
			best = n.point
			bestD = d
		}
		delta := kdCoord(KDPoint{X: x, Y: y}, n.axis) - kdCoord(n.point, n.axis)
		near, far := n.left, n.right
		if delta >= 0 {
			near, far = n.right, n.left
		}
		search(near)
		// 切分面距离等于当前最优时仍需检查远侧，等距点可能有更小的ID
		if delta*delta <= bestD {
			search(far)
		}
	}
	search(t.root)
	return best
}
