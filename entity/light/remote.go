package light

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/parallel"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	mapv2connect "git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

// remoteJunction 远程信号灯源中的路口快照
type remoteJunction struct {
	id int32
	// 信号灯的标注位置，取路口内各行车道中心线末点的质心
	xyz geometry.Point
	// 行车道在路口LaneIds中的下标，用于从相位状态数组中取行车道状态
	drivingLaneOffsets []int
}

// RemoteFeed 远程信号灯源
// 功能：通过TrafficLightService周期性拉取各路口信号灯程序与当前相位，
// 汇总为信号灯观测并交给下游
// 说明：各路口只对行车道状态做汇总，红灯优先于黄灯、黄灯优先于绿灯
type RemoteFeed struct {
	client    mapv2connect.TrafficLightServiceClient
	interval  time.Duration
	junctions []*remoteJunction
}

// NewRemoteFeed 创建远程信号灯源
// 参数：addr-TrafficLightService地址，pollSeconds-拉取周期（秒），m-地图数据
// 说明：没有行车道的路口不产生观测，直接跳过
func NewRemoteFeed(addr string, pollSeconds float64, m *mapv2.Map) *RemoteFeed {
	lanes := lo.SliceToMap(m.Lanes, func(l *mapv2.Lane) (int32, *mapv2.Lane) {
		return l.Id, l
	})
	f := &RemoteFeed{
		client:   mapv2connect.NewTrafficLightServiceClient(http.DefaultClient, addr),
		interval: time.Duration(pollSeconds * float64(time.Second)),
	}
	for _, j := range m.Junctions {
		rj := &remoteJunction{id: j.Id}
		count := 0
		for offset, laneID := range j.LaneIds {
			l, ok := lanes[laneID]
			if !ok {
				log.Panicf("junction %d references unknown lane %d", j.Id, laneID)
			}
			if l.Type != mapv2.LaneType_LANE_TYPE_DRIVING {
				continue
			}
			nodes := l.CenterLine.Nodes
			end := geometry.NewPointFromPb(nodes[len(nodes)-1])
			rj.xyz.X += end.X
			rj.xyz.Y += end.Y
			rj.xyz.Z += end.Z
			rj.drivingLaneOffsets = append(rj.drivingLaneOffsets, offset)
			count++
		}
		if count == 0 {
			continue
		}
		rj.xyz.X /= float64(count)
		rj.xyz.Y /= float64(count)
		rj.xyz.Z /= float64(count)
		f.junctions = append(f.junctions, rj)
	}
	log.Infof("remote light feed tracks %d junctions", len(f.junctions))
	return f
}

// Run 周期性拉取信号灯状态
// 功能：按拉取周期查询所有路口，把完整的观测快照交给deliver
// 说明：阻塞运行直至ctx取消；单个路口查询失败只告警，不中断拉取
func (f *RemoteFeed) Run(ctx context.Context, deliver func([]entity.ObservedLight)) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		deliver(f.poll(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll 并行查询所有路口，失败的路口从本轮快照中剔除
func (f *RemoteFeed) poll(ctx context.Context) []entity.ObservedLight {
	return parallel.GoMapFilter(f.junctions, func(rj *remoteJunction) (entity.ObservedLight, bool) {
		res, err := f.client.GetTrafficLight(ctx, connect.NewRequest(
			&mapv2.GetTrafficLightRequest{JunctionId: rj.id},
		))
		if err != nil {
			log.Warnf("get traffic light of junction %d: %v", rj.id, err)
			return entity.ObservedLight{}, false
		}
		return entity.ObservedLight{
			XYZ:   rj.xyz,
			State: rj.state(res.Msg),
		}, true
	})
}

// state 汇总路口行车道状态
// 说明：无信号灯程序视为全绿；任一行车道为红则红，其次黄，其次绿
func (rj *remoteJunction) state(res *mapv2.GetTrafficLightResponse) mapv2.LightState {
	tl := res.TrafficLight
	if tl == nil || len(tl.Phases) == 0 {
		return mapv2.LightState_LIGHT_STATE_GREEN
	}
	if res.PhaseIndex < 0 || int(res.PhaseIndex) >= len(tl.Phases) {
		log.Warnf("junction %d reports phase %d out of range", rj.id, res.PhaseIndex)
		return mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	}
	states := tl.Phases[res.PhaseIndex].States
	merged := mapv2.LightState_LIGHT_STATE_UNSPECIFIED
	for _, offset := range rj.drivingLaneOffsets {
		if offset >= len(states) {
			continue
		}
		switch states[offset] {
		case mapv2.LightState_LIGHT_STATE_RED:
			return mapv2.LightState_LIGHT_STATE_RED
		case mapv2.LightState_LIGHT_STATE_YELLOW:
			merged = mapv2.LightState_LIGHT_STATE_YELLOW
		case mapv2.LightState_LIGHT_STATE_GREEN:
			if merged == mapv2.LightState_LIGHT_STATE_UNSPECIFIED {
				merged = mapv2.LightState_LIGHT_STATE_GREEN
			}
		}
	}
	return merged
}
