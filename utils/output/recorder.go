// Package output 检测结果落库
package output

import (
	"context"

	"git.fiblab.net/general/common/v2/mongoutil"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

// 单次InsertMany的批大小
const recordBatchSize = 256

// DetectionRecord 检测结果的落库格式
type DetectionRecord struct {
	Step      int32   `bson:"step"`
	T         float64 `bson:"t"`
	StopIndex int32   `bson:"stop_index"`
	State     string  `bson:"state"`
}

// Recorder 检测结果记录器
// 功能：把每帧检测结果按批写入MongoDB
// 说明：写入在调用方goroutine中同步执行，失败只告警不中断检测
type Recorder struct {
	client *mongo.Client
	coll   *mongo.Collection
	buffer []any
}

// NewRecorder 创建检测结果记录器
// 参数：config-结果落库配置
func NewRecorder(config config.Output) *Recorder {
	client := mongoutil.NewClient(config.URI)
	return &Recorder{
		client: client,
		coll:   client.Database(config.DB).Collection(config.Col),
		buffer: make([]any, 0, recordBatchSize),
	}
}

// Record 记录一帧检测结果
// 参数：t-帧时间（秒），result-检测结果
func (r *Recorder) Record(t float64, result entity.DetectionResult) {
	r.buffer = append(r.buffer, DetectionRecord{
		Step:      result.Step,
		T:         t,
		StopIndex: result.StopIndex,
		State:     result.State.String(),
	})
	if len(r.buffer) >= recordBatchSize {
		r.flush()
	}
}

func (r *Recorder) flush() {
	if len(r.buffer) == 0 {
		return
	}
	if _, err := r.coll.InsertMany(context.Background(), r.buffer); err != nil {
		log.Warnf("failed to insert %d detection records: %v", len(r.buffer), err)
	}
	r.buffer = r.buffer[:0]
}

// Close 写出剩余结果并断开连接
func (r *Recorder) Close() {
	r.flush()
	if err := r.client.Disconnect(context.Background()); err != nil {
		log.Warnf("failed to disconnect output client: %v", err)
	}
}
