package task

import (
	"context"
	"flag"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// sendLatest 最新值投递
// 说明：通道写满时丢弃最旧的值重试，不阻塞投递方
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// DeliverRoute 投递车辆路径
func (ctx *Context) DeliverRoute(positions []entity.RoutePosition) {
	sendLatest(ctx.routeCh, positions)
}

// DeliverPose 投递车辆位姿
func (ctx *Context) DeliverPose(pose entity.RoutePosition) {
	sendLatest(ctx.poseCh, pose)
}

// DeliverLights 投递信号灯观测快照
func (ctx *Context) DeliverLights(lights []entity.ObservedLight) {
	sendLatest(ctx.lightsCh, lights)
}

// DeliverFrame 投递相机帧
// 说明：上一帧尚未被处理时直接被本帧覆盖
func (ctx *Context) DeliverFrame(frame *entity.CameraFrame) {
	sendLatest(ctx.frameCh, frame)
}

// drain 将积压的路径、位姿与灯输入全部应用到流水线
func (ctx *Context) drain() {
	for {
		select {
		case positions := <-ctx.routeCh:
			ctx.pipeline.DeliverRoute(positions)
		case pose := <-ctx.poseCh:
			ctx.pipeline.SetPose(pose)
		case lights := <-ctx.lightsCh:
			ctx.pipeline.SetLights(lights)
		default:
			return
		}
	}
}

// processFrame 处理一帧并发布检测结果
func (ctx *Context) processFrame(frame *entity.CameraFrame) {
	result := ctx.pipeline.ProcessFrame(frame)
	if ctx.recorder != nil {
		ctx.recorder.Record(ctx.clock.T, result)
	}
	sendLatest(ctx.decisionsCh, result)
}

// waitFrame 阻塞消费外部输入直到处理完一帧
// 返回：false表示c已取消
func (ctx *Context) waitFrame(c context.Context) bool {
	for {
		select {
		case <-c.Done():
			return false
		case positions := <-ctx.routeCh:
			ctx.pipeline.DeliverRoute(positions)
		case pose := <-ctx.poseCh:
			ctx.pipeline.SetPose(pose)
		case lights := <-ctx.lightsCh:
			ctx.pipeline.SetLights(lights)
		case frame := <-ctx.frameCh:
			// 帧处理前先应用更早投递的位姿与灯
			ctx.drain()
			ctx.processFrame(frame)
			return true
		}
	}
}

// step 推进时钟并按间隔输出心跳日志
func (ctx *Context) step() {
	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}
	ctx.clock.Step()
}

// Run 运行检测任务
// 功能：场景模式下由播放器逐帧驱动；否则阻塞消费外部投递的输入，
// 每处理一帧时钟前进一步，到达结束步后退出
// 参数：c-取消上下文
func (ctx *Context) Run(c context.Context) {
	remoteCtx, cancel := context.WithCancel(c)
	defer cancel()
	if ctx.remote != nil {
		go ctx.remote.Run(remoteCtx, ctx.DeliverLights)
	}
	if ctx.player != nil {
		ctx.player.Prepare(ctx)
	}

	for !ctx.clock.Done() && !ctx.closed.Load() {
		if ctx.player != nil {
			ctx.player.Step(ctx.clock.DT, ctx)
			ctx.drain()
			select {
			case frame := <-ctx.frameCh:
				ctx.processFrame(frame)
			default:
			}
		} else if !ctx.waitFrame(c) {
			break
		}
		ctx.step()
	}
	log.Infof("detector complete at step %d", ctx.clock.InternalStep)
	ctx.Close()
}
