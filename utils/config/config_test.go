package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

const exampleYAML = `
control:
  step:
    start: 0
    total: 3600
    interval: 0.1
  tolerance_distance: 250
detection:
  stop_line_positions:
    - x: 180
      y: 0
    - x: 780
      y: 20
scenario:
  speed: 10
  route:
    - x: 0
      y: 0
    - x: 400
      y: 0
  lights:
    - x: 205
      y: 0
      z: 5
      phases:
        - state: red
          duration: 20
        - state: green
          duration: 15
  classifier_noise: 0.05
  seed: 42
`

func TestConfigUnmarshal(t *testing.T) {
	var c Config
	assert.NoError(t, yaml.UnmarshalStrict([]byte(exampleYAML), &c))
	assert.Equal(t, int32(3600), c.Control.Step.Total)
	assert.Equal(t, 250.0, c.Control.ToleranceDistance)
	assert.Len(t, c.Detection.StopLinePositions, 2)
	if assert.NotNil(t, c.Scenario) {
		assert.Len(t, c.Scenario.Lights, 1)
		assert.Equal(t, 0.05, c.Scenario.ClassifierNoise)
	}
	assert.Nil(t, c.RemoteLights)
	assert.Nil(t, c.Output)
}

func TestConfigUnmarshalStrictRejectsUnknownKeys(t *testing.T) {
	var c Config
	assert.Error(t, yaml.UnmarshalStrict([]byte("controll: {}"), &c))
}

func TestNewRuntimeConfigDefaults(t *testing.T) {
	rc := NewRuntimeConfig(Config{
		Detection: Detection{
			StopLinePositions: []StopLinePosition{{X: 1, Y: 2}},
		},
	})
	assert.Equal(t, DefaultToleranceDistance, rc.ToleranceDistance)
	assert.Equal(t, DefaultStateCountThreshold, rc.StateCountThreshold)
	// 停车线Z恒为0
	assert.Equal(t, 0.0, rc.StopLines[0].Z)
	assert.Equal(t, 1.0, rc.StopLines[0].X)
}

func TestNewRuntimeConfigRejectsBadValues(t *testing.T) {
	valid := Detection{StopLinePositions: []StopLinePosition{{X: 1}}}
	assert.Panics(t, func() { NewRuntimeConfig(Config{Detection: Detection{}}) })
	assert.Panics(t, func() {
		NewRuntimeConfig(Config{
			Control:   Control{ToleranceDistance: -1},
			Detection: valid,
		})
	})
	assert.Panics(t, func() {
		NewRuntimeConfig(Config{
			Control:   Control{StateCountThreshold: -2},
			Detection: valid,
		})
	})
}

func TestInputPathCachePath(t *testing.T) {
	p := InputPath{DB: "srt", Col: "map_beijing"}
	assert.Equal(t, "srt.map_beijing.pb", p.GetCachePath())
	p.Cache = "custom.pb"
	assert.Equal(t, "custom.pb", p.GetCachePath())
}
