package detector

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/tldetector-oss/clock"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity/light"
	"github.com/tsinghua-fib-lab/tldetector-oss/entity/route"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

type testContext struct {
	clock  *clock.Clock
	config *config.RuntimeConfig
	routes entity.IRouteIndex
}

func (ctx *testContext) Clock() *clock.Clock                  { return ctx.clock }
func (ctx *testContext) RuntimeConfig() *config.RuntimeConfig { return ctx.config }
func (ctx *testContext) RouteIndex() entity.IRouteIndex       { return ctx.routes }

func newTestContext() *testContext {
	return &testContext{
		clock: clock.New(config.ControlStep{Start: 0, Total: 1000, Interval: 0.1}),
		config: &config.RuntimeConfig{
			ToleranceDistance:   300,
			StateCountThreshold: 3,
			StopLines:           []geometry.Point{{X: 180, Y: 0}},
		},
		routes: route.New(),
	}
}

func straightRoute(n int, spacing float64) []entity.RoutePosition {
	positions := make([]entity.RoutePosition, n)
	for i := range positions {
		positions[i] = entity.RoutePosition{
			XYZ: geometry.Point{X: float64(i) * spacing, Y: 0, Z: 0},
		}
	}
	return positions
}

func redFrame(seq int64) *entity.CameraFrame {
	return &entity.CameraFrame{Seq: seq, Data: []byte{byte(red)}}
}

func newTestPipeline() (*Pipeline, *testContext) {
	ctx := newTestContext()
	return NewPipeline(ctx, light.NewLocator(ctx), NewGroundTruthClassifier()), ctx
}

func TestPipelineNotReadyPublishesSentinel(t *testing.T) {
	p, _ := newTestPipeline()
	// 位姿与路径就绪前按未就绪处理，仍按帧率发布哨兵
	result := p.ProcessFrame(redFrame(0))
	assert.Equal(t, entity.NoStopIndex, result.StopIndex)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_UNSPECIFIED, result.State)

	p.SetPose(entity.RoutePosition{})
	result = p.ProcessFrame(redFrame(1))
	assert.Equal(t, entity.NoStopIndex, result.StopIndex)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_UNSPECIFIED, result.State)
}

func TestPipelineRouteDeliveryIsOnce(t *testing.T) {
	p, ctx := newTestPipeline()
	p.DeliverRoute(nil)
	assert.False(t, ctx.routes.Built())

	p.DeliverRoute(straightRoute(100, 10))
	assert.Equal(t, int32(100), ctx.routes.Len())
	p.DeliverRoute(straightRoute(5, 10))
	assert.Equal(t, int32(100), ctx.routes.Len())
}

func TestPipelineDetectsRedStop(t *testing.T) {
	p, _ := newTestPipeline()
	p.DeliverRoute(straightRoute(100, 10))
	p.SetPose(entity.RoutePosition{XYZ: geometry.Point{X: 2, Y: 1}})
	p.SetLights([]entity.ObservedLight{
		{XYZ: geometry.Point{X: 205, Y: 0, Z: 5}, State: red},
	})

	// 前3帧红灯尚未稳定
	for seq := int64(0); seq < 3; seq++ {
		result := p.ProcessFrame(redFrame(seq))
		assert.Equal(t, red, result.State)
		assert.Equal(t, entity.NoStopIndex, result.StopIndex)
	}
	// 第4帧采纳红灯，停止线(180, 0)对应下标18
	result := p.ProcessFrame(redFrame(3))
	assert.Equal(t, int32(18), result.StopIndex)
}

func TestPipelineNoLightInRange(t *testing.T) {
	p, _ := newTestPipeline()
	p.DeliverRoute(straightRoute(100, 10))
	p.SetPose(entity.RoutePosition{XYZ: geometry.Point{X: 0, Y: 0}})
	p.SetLights([]entity.ObservedLight{
		{XYZ: geometry.Point{X: 900, Y: 0}, State: red},
	})

	// 信号灯超出容差，原始状态为UNSPECIFIED且不运行分类器
	result := p.ProcessFrame(&entity.CameraFrame{Seq: 0})
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_UNSPECIFIED, result.State)
	assert.Equal(t, entity.NoStopIndex, result.StopIndex)
}

func TestPipelineClassifierErrorDegrades(t *testing.T) {
	p, _ := newTestPipeline()
	p.DeliverRoute(straightRoute(100, 10))
	p.SetPose(entity.RoutePosition{XYZ: geometry.Point{X: 0, Y: 0}})
	p.SetLights([]entity.ObservedLight{
		{XYZ: geometry.Point{X: 205, Y: 0}, State: red},
	})

	// 空载荷帧分类失败，降级为UNSPECIFIED而非中断
	result := p.ProcessFrame(&entity.CameraFrame{Seq: 0})
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_UNSPECIFIED, result.State)
}

type panicClassifier struct{}

func (panicClassifier) Classify(frame *entity.CameraFrame) (mapv2.LightState, error) {
	panic("classifier crashed")
}

func TestPipelineClassifierPanicDegrades(t *testing.T) {
	ctx := newTestContext()
	p := NewPipeline(ctx, light.NewLocator(ctx), panicClassifier{})
	p.DeliverRoute(straightRoute(100, 10))
	p.SetPose(entity.RoutePosition{XYZ: geometry.Point{X: 0, Y: 0}})
	p.SetLights([]entity.ObservedLight{
		{XYZ: geometry.Point{X: 205, Y: 0}, State: red},
	})

	result := p.ProcessFrame(redFrame(0))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_UNSPECIFIED, result.State)
	assert.Equal(t, entity.NoStopIndex, result.StopIndex)
}

func TestPipelineRedToGreenTransition(t *testing.T) {
	ctx := newTestContext()
	ctx.config.StopLines = []geometry.Point{{X: 50, Y: 0}}
	p := NewPipeline(ctx, light.NewLocator(ctx), NewGroundTruthClassifier())
	p.DeliverRoute(straightRoute(10, 10))
	p.SetPose(entity.RoutePosition{XYZ: geometry.Point{X: 0, Y: 0}})
	p.SetLights([]entity.ObservedLight{
		{XYZ: geometry.Point{X: 55, Y: 0}, State: red},
	})

	// 灯在(55, 0)，与下标5、6等距，取下标5；停止线(50, 0)同样对应下标5
	var result entity.DetectionResult
	for seq := int64(0); seq < 4; seq++ {
		result = p.ProcessFrame(redFrame(seq))
	}
	assert.Equal(t, int32(5), result.StopIndex)

	// 转绿后需同样的连续帧数，期间继续发布原停车目标
	greenFrame := &entity.CameraFrame{Data: []byte{byte(green)}}
	for i := 0; i < 3; i++ {
		result = p.ProcessFrame(greenFrame)
		assert.Equal(t, int32(5), result.StopIndex)
	}
	result = p.ProcessFrame(greenFrame)
	assert.Equal(t, entity.NoStopIndex, result.StopIndex)
	assert.Equal(t, green, result.State)
}

func TestGroundTruthClassifier(t *testing.T) {
	c := NewGroundTruthClassifier()
	state, err := c.Classify(&entity.CameraFrame{Data: []byte{byte(green)}})
	assert.NoError(t, err)
	assert.Equal(t, green, state)

	_, err = c.Classify(&entity.CameraFrame{})
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = c.Classify(&entity.CameraFrame{Data: []byte{0xff}})
	assert.Error(t, err)
}

func TestNoisyClassifier(t *testing.T) {
	inner := NewGroundTruthClassifier()
	// 概率为0时透传
	c := NewNoisyClassifier(inner, 0, 42)
	for seq := int64(0); seq < 10; seq++ {
		state, err := c.Classify(redFrame(seq))
		assert.NoError(t, err)
		assert.Equal(t, red, state)
	}
	// 概率为1时必然翻转为其他状态
	c = NewNoisyClassifier(inner, 1, 42)
	for seq := int64(0); seq < 10; seq++ {
		state, err := c.Classify(redFrame(seq))
		assert.NoError(t, err)
		assert.NotEqual(t, red, state)
	}
}
