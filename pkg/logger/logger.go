package logger

import (
	"edu_network_backend/internal/config"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ServiceName 写入每条日志，便于在多区域日志汇聚后区分来源
const ServiceName = "edu-network-distribution"

// Log 在 InitLogger 之前为空操作日志器
var Log = zap.NewNop()

func InitLogger(cfg *config.Config) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	filename := cfg.Log.File
	if filename == "" {
		filename = "logs/app.log"
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	consoleWriter := zapcore.AddSync(os.Stdout)

	level := Level(cfg.Log.Level, cfg.Server.Mode)

	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			fileWriter,
			level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			consoleWriter,
			level,
		),
	)

	Log = zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(zap.String("service", ServiceName), zap.String("instance", instanceName())),
	)
}

// Level 显式配置优先，否则 debug 模式输出 debug 级别
func Level(configured, mode string) zapcore.Level {
	if configured != "" {
		if lvl, err := zapcore.ParseLevel(configured); err == nil {
			return lvl
		}
	}
	if mode == "debug" {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

// ForJob 分发任务作用域的日志器
func ForJob(jobID, contentID string) *zap.Logger {
	return Log.With(zap.String("jobId", jobID), zap.String("contentId", contentID))
}

// ForNode 节点作用域的日志器
func ForNode(nodeID string) *zap.Logger {
	return Log.With(zap.String("nodeId", nodeID))
}

// 多实例共用 Redis 锁时用主机名区分日志来源
func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
