package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

func newRotator(logFilePath string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // Megabytes
		MaxBackups: 5,
		MaxAge:     30, // Days
		Compress:   true,
	}
}

func newJSONEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	jsonEncoder := newJSONEncoder()

	fileCore := zapcore.NewCore(
		jsonEncoder,
		zapcore.AddSync(newRotator(logFilePath)),
		zap.InfoLevel,
	)

	var consoleEncoder zapcore.Encoder
	if isProd {
		consoleEncoder = jsonEncoder
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	consoleCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)

	core := zapcore.NewTee(fileCore, consoleCore)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	return &ZapLogger{
		logger:   l,
		filePath: logFilePath,
	}
}

// NewIsolatedLogger creates a logger that ONLY writes to the file, not
// console. Used for domain logs (WebSocket/notifications) to keep the main
// log clean.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	fileCore := zapcore.NewCore(
		newJSONEncoder(),
		zapcore.AddSync(newRotator(logFilePath)),
		zap.DebugLevel,
	)

	l := zap.New(fileCore, zap.AddCaller(), zap.AddCallerSkip(1))
	return &ZapLogger{
		logger:   l,
		filePath: logFilePath,
	}
}

func (z *ZapLogger) fields(module string, details map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(details)+1)
	fields = append(fields, zap.String("module", module))
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (z *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	z.logger.Debug(message, z.fields(module, details)...)
}

func (z *ZapLogger) Info(module, message string, details map[string]interface{}) {
	z.logger.Info(message, z.fields(module, details)...)
}

func (z *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	z.logger.Warn(message, z.fields(module, details)...)
}

func (z *ZapLogger) Error(module, message string, details map[string]interface{}) {
	z.logger.Error(message, z.fields(module, details)...)
}

func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
