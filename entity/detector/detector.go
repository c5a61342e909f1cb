// Package detector 红灯停车检测流水线
//
// 流水线保存最近一次的车辆位姿与信号灯观测，对每帧相机图像给出
// 消抖后的停车目标路径点下标。
package detector

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"

	"git.fiblab.net/general/common/v2/geometry"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

// Pipeline 检测流水线
// 说明：各输入通道均为最新值语义，旧值被新值直接覆盖；
// 流水线本身不做同步，由外部保证串行调用
type Pipeline struct {
	ctx        entity.ITaskContext
	locator    entity.ILightLocator
	classifier entity.IClassifier
	debouncer  *Debouncer
	stopLines  []entity.StopLine

	pose   *entity.RoutePosition // 最近一次车辆位姿
	lights []entity.ObservedLight
}

// NewPipeline 创建检测流水线
func NewPipeline(
	ctx entity.ITaskContext,
	locator entity.ILightLocator,
	classifier entity.IClassifier,
) *Pipeline {
	return &Pipeline{
		ctx:        ctx,
		locator:    locator,
		classifier: classifier,
		debouncer:  NewDebouncer(ctx.RuntimeConfig().StateCountThreshold),
		stopLines: lo.Map(
			ctx.RuntimeConfig().StopLines,
			func(p geometry.Point, _ int) entity.StopLine { return entity.StopLine{XYZ: p} },
		),
	}
}

// SetPose 更新车辆位姿
func (p *Pipeline) SetPose(pose entity.RoutePosition) {
	p.pose = &pose
}

// SetLights 更新信号灯观测快照
func (p *Pipeline) SetLights(lights []entity.ObservedLight) {
	p.lights = lights
}

// DeliverRoute 下发车辆路径
// 说明：只采纳首个非空路径，空路径与重复下发均被忽略
func (p *Pipeline) DeliverRoute(positions []entity.RoutePosition) {
	index := p.ctx.RouteIndex()
	if index.Built() {
		log.Debug("route is already built, ignore redelivery")
		return
	}
	if len(positions) == 0 {
		log.Warn("ignore empty route delivery")
		return
	}
	index.Build(positions)
}

// ProcessFrame 处理一帧相机图像
// 功能：
// 1. 以车辆最近路径点处的路径位置为参考，定位前方容差内最近的信号灯
// 2. 有信号灯时运行分类器得到原始状态，无信号灯时原始状态为UNSPECIFIED
// 3. 原始结果经消抖后得到对外发布的停车目标
// 说明：位姿或路径尚未就绪属于正常的未就绪状态，本帧原始输入视为
// (UNSPECIFIED, NoStopIndex)，仍按帧率发布结果
func (p *Pipeline) ProcessFrame(frame *entity.CameraFrame) entity.DetectionResult {
	index := p.ctx.RouteIndex()
	state := mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	stopIndex := entity.NoStopIndex
	if p.pose == nil || !index.Built() {
		log.Debugf("frame %d arrives before pose or route is ready", frame.Seq)
	} else {
		vehicleIndex := index.Nearest(p.pose.XYZ.X, p.pose.XYZ.Y)
		vehicleXYZ := index.At(vehicleIndex).XYZ
		var light *entity.ObservedLight
		stopIndex, light = p.locator.Locate(vehicleXYZ, vehicleIndex, p.lights, p.stopLines)
		if light != nil {
			state = p.classify(frame)
		}
	}

	result := entity.DetectionResult{
		Step:      p.ctx.Clock().InternalStep,
		StopIndex: p.debouncer.Update(state, stopIndex),
		State:     state,
	}
	log.Debugf(
		"frame %d: raw (%v, %d), publish %d",
		frame.Seq, state, stopIndex, result.StopIndex,
	)
	return result
}

// classify 调用分类器并吸收其故障
// 说明：分类器属于外部能力，出错或panic都降级为UNSPECIFIED，不得中断流水线
func (p *Pipeline) classify(frame *entity.CameraFrame) (state mapv2.LightState) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("classifier panic on frame %d: %v", frame.Seq, r)
			state = mapv2.LightState_LIGHT_STATE_UNSPECIFIED
		}
	}()
	state, err := p.classifier.Classify(frame)
	if err != nil {
		log.Warnf("classify frame %d: %v", frame.Seq, err)
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	}
	return state
}
