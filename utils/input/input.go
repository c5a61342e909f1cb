// Package input 输入数据加载
//
// 地图数据从文件或MongoDB加载，并可由地图中的车道序列拼出车辆路径。
package input

import (
	"context"
	"os"

	"git.fiblab.net/general/common/v2/cache"
	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/general/common/v2/protoutil"
	geov2 "git.fiblab.net/sim/protos/v2/go/city/geo/v2"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/protobuf/proto"

	"github.com/tsinghua-fib-lab/tldetector-oss/entity"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

// Input 输入数据
// 说明：未配置地图输入时Map为nil，此时路径与信号灯须由场景配置提供
type Input struct {
	Map *mapv2.Map
}

// Init 下载数据
// 功能：根据配置加载地图数据
// 参数：config-配置对象，cacheDir-缓存目录
// 返回：加载完成的输入数据指针
// 说明：文件路径优先于MongoDB；配置了URI时建立连接并在加载完成后断开
func Init(config config.Config, cacheDir string) (res *Input) {
	useCache := preCheckCache(cacheDir)
	if !useCache {
		cacheDir = ""
	}

	var client *mongo.Client
	if config.Input.URI != "" {
		client = mongoutil.NewClient(config.Input.URI)
		defer client.Disconnect(context.Background())
	}

	res = &Input{}
	if config.Input.Map == nil {
		log.Info("no map input configured")
		return
	}
	if config.Input.Map.File != "" {
		var m mapv2.Map
		if err := protoutil.UnmarshalFromFile(&m, config.Input.Map.File); err != nil {
			log.Panicf("failed to load map from file: %v", err)
		}
		res.Map = &m
	} else {
		res.Map = mustLoad[mapv2.Map](client, *config.Input.Map, cacheDir)
	}
	log.Infof(
		"map loaded with %d lanes and %d junctions",
		len(res.Map.Lanes), len(res.Map.Junctions),
	)
	return
}

// BuildRouteFromLanes 由车道ID序列构建车辆路径
// 功能：按顺序拼接各车道中心线，得到带航向角的路径点序列
// 参数：m-地图数据，laneIDs-车道ID序列
// 返回：路径点序列
// 算法说明：
// 1. 各车道中心线折线点转为路径点，相邻车道衔接处的重复点去重
// 2. 路径点航向角取其所在折线段的方向，每条车道末点沿用末段方向
// 说明：车道不存在或不是行车道属于配置错误，直接panic
func BuildRouteFromLanes(m *mapv2.Map, laneIDs []int32) []entity.RoutePosition {
	lanes := lo.SliceToMap(m.Lanes, func(l *mapv2.Lane) (int32, *mapv2.Lane) {
		return l.Id, l
	})
	positions := make([]entity.RoutePosition, 0)
	for _, laneID := range laneIDs {
		l, ok := lanes[laneID]
		if !ok {
			log.Panicf("route lane %d does not exist in map", laneID)
		}
		if l.Type != mapv2.LaneType_LANE_TYPE_DRIVING {
			log.Panicf("route lane %d is not a driving lane", laneID)
		}
		line := lo.Map(l.CenterLine.Nodes, func(node *geov2.XYPosition, _ int) geometry.Point {
			return geometry.NewPointFromPb(node)
		})
		directions := geometry.GetPolylineDirections(line)
		for i, p := range line {
			// 车道衔接处首点与上一车道末点重合时跳过
			if len(positions) > 0 {
				last := positions[len(positions)-1].XYZ
				if last.X == p.X && last.Y == p.Y {
					continue
				}
			}
			heading := directions[min(i, len(directions)-1)].Direction
			positions = append(positions, entity.RoutePosition{XYZ: p, Heading: heading})
		}
	}
	log.Infof("route built from %d lanes with %d positions", len(laneIDs), len(positions))
	return positions
}

// mustLoad 从MongoDB或本地缓存中加载pb数据
// 说明：缓存命中时跳过下载；OnlyCache时只读缓存；失败时panic
func mustLoad[T any, PT interface {
	proto.Message
	*T
}](client *mongo.Client, inputPath config.InputPath, cacheDir string) (res PT) {
	var downloadFunc func() PT
	if !inputPath.OnlyCache {
		coll := mongoutil.GetMongoColl(client, inputPath)
		downloadFunc = func() PT {
			pb, errs := mongoutil.DownloadPbFromMongo[T, PT](
				context.Background(), coll, nil, nil,
			)
			if len(errs) > 0 {
				for _, err := range errs {
					log.Errorf("failed to download: %v", err)
				}
				log.Panicf("failed to download from %s.%s", inputPath.DB, inputPath.Col)
			}
			return pb
		}
	}
	log.Infof("start fetching from %s.%s", inputPath.DB, inputPath.Col)
	res, err := cache.LoadWithCache(cacheDir, inputPath, downloadFunc)
	if err != nil {
		log.Panicf("failed to load with cache: %v", err)
	}
	log.Infof("finish fetching from %s.%s", inputPath.DB, inputPath.Col)
	return
}

// preCheckCache 预检查缓存目录
// 功能：验证输入缓存目录的有效性，决定是否启用缓存
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	}
	if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
		log.Infof("enable input cache at %s", cacheDir)
		return true
	}
	log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
	return false
}
