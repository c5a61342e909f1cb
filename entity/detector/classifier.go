package detector

import (
	"errors"
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/randengine"
)

var ErrEmptyFrame = errors.New("camera frame has no payload")

// GroundTruthClassifier 真值分类器
// 功能：从图像帧载荷中直接解码信号灯状态
// 说明：载荷首字节为信号灯状态编码，仿真图像源按此格式生成帧
type GroundTruthClassifier struct{}

// NewGroundTruthClassifier 创建真值分类器
func NewGroundTruthClassifier() *GroundTruthClassifier {
	return &GroundTruthClassifier{}
}

// Classify 解码图像帧中的信号灯状态
func (c *GroundTruthClassifier) Classify(frame *entity.CameraFrame) (mapv2.LightState, error) {
	if len(frame.Data) == 0 {
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED, ErrEmptyFrame
	}
	state := mapv2.LightState(frame.Data[0])
	if _, ok := mapv2.LightState_name[int32(state)]; !ok {
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED, fmt.Errorf(
			"invalid light state encoding %d in frame %d", frame.Data[0], frame.Seq,
		)
	}
	return state, nil
}

// NoisyClassifier 带噪分类器
// 功能：包装另一分类器，以给定概率把结果替换为其他状态，模拟误检
// 说明：同一种子下噪声序列可复现
type NoisyClassifier struct {
	inner     entity.IClassifier
	p         float64
	generator *randengine.Engine
}

// NewNoisyClassifier 创建带噪分类器
// 参数：inner-被包装的分类器，p-误检概率，seed-随机数种子
func NewNoisyClassifier(inner entity.IClassifier, p float64, seed uint64) *NoisyClassifier {
	return &NoisyClassifier{
		inner:     inner,
		p:         p,
		generator: randengine.New(seed),
	}
}

// Classify 分类并按误检概率翻转结果
func (c *NoisyClassifier) Classify(frame *entity.CameraFrame) (mapv2.LightState, error) {
	state, err := c.inner.Classify(frame)
	if err != nil {
		return state, err
	}
	if !c.generator.PTrue(c.p) {
		return state, nil
	}
	candidates := make([]mapv2.LightState, 0, 3)
	for _, s := range []mapv2.LightState{
		mapv2.LightState_LIGHT_STATE_UNSPECIFIED,
		mapv2.LightState_LIGHT_STATE_RED,
		mapv2.LightState_LIGHT_STATE_GREEN,
		mapv2.LightState_LIGHT_STATE_YELLOW,
	} {
		if s != state {
			candidates = append(candidates, s)
		}
	}
	flipped := candidates[c.generator.Intn(len(candidates))]
	log.Debugf("frame %d: misclassify %v as %v", frame.Seq, state, flipped)
	return flipped, nil
}
