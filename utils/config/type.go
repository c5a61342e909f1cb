package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：支持MongoDB数据库和文件系统两种数据源，支持缓存机制
type InputPath struct {
	DB        string `yaml:"db"`                   // 数据库名
	Col       string `yaml:"col"`                  // 集合名
	Cache     string `yaml:"cache,omitempty"`      // 缓存文件名，为空则采用默认路径{db}.{col}.pb
	OnlyCache bool   `yaml:"only_cache,omitempty"` // 只从缓存中获取
	File      string `yaml:"file,omitempty"`       // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// GetCachePath 获取缓存文件路径
// 说明：未指定缓存路径时采用默认命名规则{数据库名}.{集合名}.pb
func (p InputPath) GetCachePath() string {
	if p.Cache != "" {
		return p.Cache
	}
	return p.DB + "." + p.Col + ".pb"
}

// Input 指定检测器所有输入数据的配置项
// 说明：地图为可选输入，用于从车道中心线构建路径与远程取灯
type Input struct {
	URI string     `yaml:"uri,omitempty"` // MongoDB连接字符串
	Map *InputPath `yaml:"map,omitempty"` // 地图
}

// ControlStep 指定检测任务时间范围和帧间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（即帧间隔，秒）
}

// Control 检测器控制配置
// 功能：定义检测决策的核心控制参数
type Control struct {
	Step ControlStep `yaml:"step"`
	// 信号灯相关性判定的最大直线距离，0表示使用默认值300
	ToleranceDistance float64 `yaml:"tolerance_distance,omitempty"`
	// 灯色去抖阈值：原始灯色连续出现该次数后才被采信，0表示使用默认值3
	StateCountThreshold int32 `yaml:"state_count_threshold,omitempty"`
}

// StopLinePosition 停车线的平面坐标
type StopLinePosition struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Detection 检测静态配置
// 说明：停车线列表启动时加载一次，数量与顺序在进程生命周期内固定
type Detection struct {
	StopLinePositions []StopLinePosition `yaml:"stop_line_positions"`
}

// ScenarioPhase 场景信号灯的一个相位
type ScenarioPhase struct {
	State    string  `yaml:"state"`    // 灯色（red/yellow/green/unknown）
	Duration float64 `yaml:"duration"` // 相位时长（秒)
}

// ScenarioLight 场景中的一个信号灯及其固定相位程序
type ScenarioLight struct {
	X      float64         `yaml:"x"`
	Y      float64         `yaml:"y"`
	Z      float64         `yaml:"z,omitempty"`
	Phases []ScenarioPhase `yaml:"phases"`
}

// RoutePoint 内联路径点
type RoutePoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z,omitempty"`
}

// Scenario 场景回放配置
// 功能：离线驱动检测器的虚拟行车场景
// 说明：路径来源二选一：内联路径点，或地图中车道ID序列
type Scenario struct {
	Speed           float64         `yaml:"speed"`                      // 车速（米/秒）
	Route           []RoutePoint    `yaml:"route,omitempty"`            // 内联路径
	RouteLanes      []int32         `yaml:"route_lanes,omitempty"`      // 地图车道ID序列
	Lights          []ScenarioLight `yaml:"lights"`                     // 信号灯及相位程序
	ClassifierNoise float64         `yaml:"classifier_noise,omitempty"` // 分类器翻转噪声概率[0,1)
	Seed            uint64          `yaml:"seed,omitempty"`             // 噪声随机种子
}

// RemoteLights 远程取灯配置
// 说明：通过connect客户端轮询城市模拟器的信号灯服务获取灯色快照
type RemoteLights struct {
	Addr        string  `yaml:"addr"`                   // 信号灯服务地址，如http://localhost:51102
	PollSeconds float64 `yaml:"poll_seconds,omitempty"` // 轮询间隔（秒），0表示使用帧间隔
}

// Output 检测结果落库配置
type Output struct {
	URI string `yaml:"uri"` // MongoDB连接字符串
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// Config YAML配置文件的根结构
type Config struct {
	Input        Input         `yaml:"input,omitempty"`         // 输入
	Control      Control       `yaml:"control"`                 // 检测过程控制
	Detection    Detection     `yaml:"detection"`               // 停车线等静态检测配置
	Scenario     *Scenario     `yaml:"scenario,omitempty"`      // 场景回放（可选）
	RemoteLights *RemoteLights `yaml:"remote_lights,omitempty"` // 远程取灯（可选）
	Output       *Output       `yaml:"output,omitempty"`        // 结果落库（可选）
}
