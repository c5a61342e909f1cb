// Package scenario 场景回放
//
// 由配置文件描述的虚拟行车场景驱动检测器：车辆以恒定速度沿路径行驶，
// 信号灯按固定相位程序变化，每步产生一帧载有最近灯真值的相机图像。
package scenario

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

// Sink 场景输出的接收方
type Sink interface {
	DeliverRoute(positions []entity.RoutePosition)
	DeliverPose(pose entity.RoutePosition)
	DeliverLights(lights []entity.ObservedLight)
	DeliverFrame(frame *entity.CameraFrame)
}

// Player 场景播放器
// 功能：按帧推进虚拟车辆与信号灯，把位姿、灯快照与相机帧交给下游
type Player struct {
	speed  float64
	route  []entity.RoutePosition
	lights []*phasedLight

	line        []geometry.Point // 路径折线
	lineLengths []float64        // 路径折线点对应的长度列表
	length      float64          // 路径总长度

	s   float64 // 已行驶里程
	seq int64   // 帧序号
}

// NewPlayer 创建场景播放器
// 参数：cfg-场景配置，route-车辆路径（由内联路径点或地图车道构建）
// 说明：路径为空或车速为负属于配置错误，直接panic
func NewPlayer(cfg config.Scenario, route []entity.RoutePosition) *Player {
	if len(route) < 2 {
		log.Panicf("scenario route needs at least 2 positions, got %d", len(route))
	}
	if cfg.Speed < 0 {
		log.Panicf("scenario speed must not be negative, got %v", cfg.Speed)
	}
	p := &Player{
		speed: cfg.Speed,
		route: route,
		lights: lo.Map(cfg.Lights, func(l config.ScenarioLight, _ int) *phasedLight {
			return newPhasedLight(l)
		}),
		line: lo.Map(route, func(r entity.RoutePosition, _ int) geometry.Point {
			return r.XYZ
		}),
	}
	p.lineLengths = geometry.GetPolylineLengths2D(p.line)
	p.length = p.lineLengths[len(p.lineLengths)-1]
	log.Infof(
		"scenario: %d route positions over %.1fm, %d lights, speed %.1fm/s",
		len(route), p.length, len(p.lights), cfg.Speed,
	)
	return p
}

// Prepare 场景初始化
// 功能：向下游下发车辆路径与初始灯快照
func (p *Player) Prepare(sink Sink) {
	sink.DeliverRoute(p.route)
	sink.DeliverLights(p.observedLights())
	sink.DeliverPose(p.poseAt(0))
}

// Step 推进一帧
// 功能：车辆前进speed*dt里程并发布位姿，信号灯推进相位，
// 最后产出一帧以最近灯灯色为真值载荷的相机图像
// 说明：车辆到达路径终点后停在原地，场景继续产帧
func (p *Player) Step(dt float64, sink Sink) {
	p.s = math.Min(p.s+p.speed*dt, p.length)
	pose := p.poseAt(p.s)
	for _, l := range p.lights {
		l.update(dt)
	}
	sink.DeliverPose(pose)
	sink.DeliverLights(p.observedLights())
	sink.DeliverFrame(&entity.CameraFrame{
		Seq:  p.seq,
		Data: []byte{byte(p.truth(pose.XYZ))},
	})
	p.seq++
}

// poseAt 将里程s转换为路径上的位姿
// 说明：位置在折线段上线性插值，航向角取所在折线段两端路径点中较近者
func (p *Player) poseAt(s float64) entity.RoutePosition {
	s = lo.Clamp(s, 0, p.length)
	i := sort.SearchFloat64s(p.lineLengths, s)
	if i == 0 {
		return p.route[0]
	}
	sHigh, sLow := p.lineLengths[i], p.lineLengths[i-1]
	k := (s - sLow) / (sHigh - sLow)
	pose := entity.RoutePosition{
		XYZ: geometry.Blend(p.line[i-1], p.line[i], k),
	}
	if k < 0.5 {
		pose.Heading = p.route[i-1].Heading
	} else {
		pose.Heading = p.route[i].Heading
	}
	return pose
}

// observedLights 获取所有信号灯的当前观测快照
func (p *Player) observedLights() []entity.ObservedLight {
	return lo.Map(p.lights, func(l *phasedLight, _ int) entity.ObservedLight {
		return l.observed()
	})
}

// truth 获取相机帧的灯色真值
// 说明：取与车辆三维距离最近的信号灯灯色，没有灯时为UNSPECIFIED
func (p *Player) truth(xyz geometry.Point) mapv2.LightState {
	state := mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	nearest := mathutil.INF
	for _, l := range p.lights {
		dx, dy, dz := xyz.X-l.xyz.X, xyz.Y-l.xyz.Y, xyz.Z-l.xyz.Z
		if d := dx*dx + dy*dy + dz*dz; d < nearest {
			nearest = d
			state = l.phases[l.step].state
		}
	}
	return state
}
