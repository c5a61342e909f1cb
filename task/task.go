// Package task 检测任务组装与运行
//
// Context把路径索引、信号灯定位器、分类器与检测流水线组装为一个任务，
// 对外提供线程安全的输入投递接口，在单一消费循环中逐帧处理。
package task

import (
	"sync/atomic"

	"git.fiblab.net/general/common/v2/geometry"

	"github.com/tsinghua-fib-lab/tldetector-oss/clock"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity/detector"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity/light"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity/route"
	"github.com/tsinghua-fib-lab/tldetector-oss/scenario"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/input"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/output"
)

// 检测结果订阅通道的容量，写满后丢弃最旧的结果
const decisionBufferSize = 64

// Context 检测任务上下文
// 功能：包含一次检测任务的所有变量和状态
// 说明：输入投递接口可被任意goroutine调用，流水线只在Run的消费循环中访问
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 缓存文件夹
	cacheDir string
	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig
	// 用于初始化的输入
	initRes *input.Input

	// 路径点空间索引
	routeIndex *route.RouteIndex
	// 检测流水线
	pipeline *detector.Pipeline
	// 场景播放器（可选）
	player *scenario.Player
	// 远程信号灯源（可选）
	remote *light.RemoteFeed
	// 结果记录器（可选）
	recorder *output.Recorder

	// 输入通道，均为容量1的最新值通道
	routeCh  chan []entity.RoutePosition
	poseCh   chan entity.RoutePosition
	lightsCh chan []entity.ObservedLight
	frameCh  chan *entity.CameraFrame

	// 检测结果订阅通道
	decisionsCh chan entity.DetectionResult
}

// NewContext 创建新的检测任务上下文
// 功能：加载输入数据并组装任务的所有组件
// 参数：job-任务名称，cacheDir-缓存目录，c-配置对象
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 初始化时钟与运行时配置
// 2. 加载地图等输入数据
// 3. 按配置组装分类器（可选带噪包装）与检测流水线
// 4. 按配置创建场景播放器、远程信号灯源与结果记录器
func NewContext(job string, cacheDir string, c config.Config) *Context {
	ctx := &Context{
		job:      job,
		cacheDir: cacheDir,

		routeCh:     make(chan []entity.RoutePosition, 1),
		poseCh:      make(chan entity.RoutePosition, 1),
		lightsCh:    make(chan []entity.ObservedLight, 1),
		frameCh:     make(chan *entity.CameraFrame, 1),
		decisionsCh: make(chan entity.DetectionResult, decisionBufferSize),
	}
	ctx.clock = clock.New(c.Control.Step)

	// 下载检测器启动所需的数据
	ctx.initRes = input.Init(c, ctx.cacheDir)

	ctx.runtimeConfig = config.NewRuntimeConfig(c)
	ctx.routeIndex = route.New()

	var classifier entity.IClassifier = detector.NewGroundTruthClassifier()
	if c.Scenario != nil && c.Scenario.ClassifierNoise > 0 {
		classifier = detector.NewNoisyClassifier(
			classifier, c.Scenario.ClassifierNoise, c.Scenario.Seed,
		)
	}
	ctx.pipeline = detector.NewPipeline(ctx, light.NewLocator(ctx), classifier)

	if c.Scenario != nil {
		ctx.player = scenario.NewPlayer(*c.Scenario, ctx.scenarioRoute(c.Scenario))
	}
	if c.RemoteLights != nil {
		if ctx.initRes.Map == nil {
			log.Panic("remote_lights requires map input")
		}
		poll := c.RemoteLights.PollSeconds
		if poll == 0 {
			poll = ctx.clock.DT
		}
		ctx.remote = light.NewRemoteFeed(c.RemoteLights.Addr, poll, ctx.initRes.Map)
	}
	if c.Output != nil {
		ctx.recorder = output.NewRecorder(*c.Output)
	}

	return ctx
}

// scenarioRoute 构建场景车辆路径
// 说明：内联路径点优先；否则由地图车道序列构建，此时必须配置地图输入
func (ctx *Context) scenarioRoute(s *config.Scenario) []entity.RoutePosition {
	if len(s.Route) > 0 {
		line := make([]geometry.Point, len(s.Route))
		for i, p := range s.Route {
			line[i] = geometry.Point{X: p.X, Y: p.Y, Z: p.Z}
		}
		directions := geometry.GetPolylineDirections(line)
		positions := make([]entity.RoutePosition, len(line))
		for i, p := range line {
			positions[i] = entity.RoutePosition{
				XYZ:     p,
				Heading: directions[min(i, len(directions)-1)].Direction,
			}
		}
		return positions
	}
	if len(s.RouteLanes) > 0 {
		if ctx.initRes.Map == nil {
			log.Panic("scenario.route_lanes requires map input")
		}
		return input.BuildRouteFromLanes(ctx.initRes.Map, s.RouteLanes)
	}
	log.Panic("scenario needs either route or route_lanes")
	return nil
}

func (ctx *Context) GetInput() *input.Input {
	return ctx.initRes
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) RouteIndex() entity.IRouteIndex {
	return ctx.routeIndex
}

// Decisions 获取检测结果订阅通道
// 说明：通道写满时最旧的结果被丢弃，订阅方只保证看到较新的结果
func (ctx *Context) Decisions() <-chan entity.DetectionResult {
	return ctx.decisionsCh
}

// Close 结束任务
// 说明：写出剩余结果，幂等
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.recorder != nil {
		ctx.recorder.Close()
	}
}
