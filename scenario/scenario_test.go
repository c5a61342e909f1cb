package scenario

import (
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

type recordingSink struct {
	route  []entity.RoutePosition
	poses  []entity.RoutePosition
	lights [][]entity.ObservedLight
	frames []*entity.CameraFrame
}

func (s *recordingSink) DeliverRoute(positions []entity.RoutePosition) { s.route = positions }
func (s *recordingSink) DeliverPose(pose entity.RoutePosition)         { s.poses = append(s.poses, pose) }
func (s *recordingSink) DeliverLights(lights []entity.ObservedLight) {
	s.lights = append(s.lights, lights)
}
func (s *recordingSink) DeliverFrame(frame *entity.CameraFrame) { s.frames = append(s.frames, frame) }

func straightRoute(n int, spacing float64) []entity.RoutePosition {
	positions := make([]entity.RoutePosition, n)
	for i := range positions {
		positions[i] = entity.RoutePosition{
			XYZ: geometry.Point{X: float64(i) * spacing, Y: 0, Z: 0},
		}
	}
	return positions
}

func TestPhasedLightCycle(t *testing.T) {
	l := newPhasedLight(config.ScenarioLight{
		X: 0, Y: 0,
		Phases: []config.ScenarioPhase{
			{State: "red", Duration: 1},
			{State: "green", Duration: 2},
		},
	})
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.observed().State)
	l.update(0.5)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.observed().State)
	l.update(0.6)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, l.observed().State)
	l.update(2.0)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.observed().State)
	// 单次大步长跨多个相位
	l.update(3.0)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.observed().State)
}

func TestPhasedLightBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		newPhasedLight(config.ScenarioLight{Phases: []config.ScenarioPhase{{State: "blue", Duration: 1}}})
	})
	assert.Panics(t, func() {
		newPhasedLight(config.ScenarioLight{Phases: []config.ScenarioPhase{{State: "red", Duration: 0}}})
	})
	assert.Panics(t, func() { newPhasedLight(config.ScenarioLight{}) })
}

func TestPlayerStep(t *testing.T) {
	p := NewPlayer(config.Scenario{
		Speed: 10,
		Lights: []config.ScenarioLight{{
			X: 55, Y: 0,
			Phases: []config.ScenarioPhase{
				{State: "red", Duration: 100},
			},
		}},
	}, straightRoute(101, 1))

	sink := &recordingSink{}
	p.Prepare(sink)
	assert.Len(t, sink.route, 101)
	assert.Len(t, sink.poses, 1)
	assert.Equal(t, 0.0, sink.poses[0].XYZ.X)

	for i := 0; i < 5; i++ {
		p.Step(0.1, sink)
	}
	// 每步前进1m
	assert.Len(t, sink.frames, 5)
	assert.InDelta(t, 5.0, sink.poses[len(sink.poses)-1].XYZ.X, 1e-9)
	// 帧载荷为最近灯的灯色真值
	assert.Equal(t, []byte{byte(mapv2.LightState_LIGHT_STATE_RED)}, sink.frames[4].Data)
	assert.Equal(t, int64(4), sink.frames[4].Seq)
}

func TestPlayerStopsAtRouteEnd(t *testing.T) {
	p := NewPlayer(config.Scenario{
		Speed:  100,
		Lights: []config.ScenarioLight{},
	}, straightRoute(11, 1))

	sink := &recordingSink{}
	p.Prepare(sink)
	for i := 0; i < 10; i++ {
		p.Step(1, sink)
	}
	// 到达终点后停在原地，场景继续产帧
	assert.InDelta(t, 10.0, sink.poses[len(sink.poses)-1].XYZ.X, 1e-9)
	assert.Len(t, sink.frames, 10)
	// 无灯场景的帧真值为UNSPECIFIED
	assert.Equal(t, []byte{byte(mapv2.LightState_LIGHT_STATE_UNSPECIFIED)}, sink.frames[0].Data)
}

func TestPlayerBadConfig(t *testing.T) {
	assert.Panics(t, func() { NewPlayer(config.Scenario{Speed: 1}, nil) })
	assert.Panics(t, func() { NewPlayer(config.Scenario{Speed: -1}, straightRoute(5, 1)) })
}
