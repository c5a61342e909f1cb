package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/tsinghua-fib-lab/tldetector-oss/task"
	"github.com/tsinghua-fib-lab/tldetector-oss/utils/config"
)

var (
	// 检测任务名，用于日志与输出记录的标识
	job = flag.String("job", "job0", "the name of the detection task")
	// 配置文件路径，与config-data二选一
	configPath = flag.String("config", "", "config file path")
	// Base64编码的配置数据，便于不落盘地传入配置
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 地图输入的本地缓存目录，置空禁用缓存
	cacheDir = flag.String("cache", "data/", "input cache dir path (empty means disable cache)")

	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}

	log = logrus.WithField("module", "tldetector")
)

// loadConfig 从文件路径或Base64数据中解析配置
func loadConfig() config.Config {
	var raw []byte
	var err error
	switch {
	case *configPath != "":
		if raw, err = os.ReadFile(*configPath); err != nil {
			log.Panicf("config file load err: %v", err)
		}
	case *configData != "":
		if raw, err = base64.StdEncoding.DecodeString(*configData); err != nil {
			log.Panicf("config data load err: %v", err)
		}
	default:
		log.Panic("config file or config data must be specified")
	}
	var c config.Config
	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		log.Panicf("config parse err: %v", err)
	}
	return c
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}

	c := loadConfig()
	log.Infof("%+v", c)

	t := task.NewContext(*job, *cacheDir, c)

	// SIGINT/SIGTERM触发任务的优雅退出
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	t.Run(ctx)
}
