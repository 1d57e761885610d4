// Package logging builds the zap logger used by the command line
// tools.
package logging

import (
    "fmt"
    "os"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger writing console output to stderr at the given
// level. When file is non-empty, structured JSON lines also go to a
// size-rotated log file, so long watch sessions cannot fill the disk.
func New(level, file string) (*zap.Logger, error) {
    if level == "" {
        level = "info"
    }
    lvl, err := zapcore.ParseLevel(strings.ToLower(level))
    if err != nil {
        return nil, fmt.Errorf("log level %q: %w", level, err)
    }

    consoleCfg := zap.NewDevelopmentEncoderConfig()
    core := zapcore.NewCore(
        zapcore.NewConsoleEncoder(consoleCfg),
        zapcore.Lock(os.Stderr),
        lvl,
    )

    if file != "" {
        fileSink := zapcore.AddSync(&lumberjack.Logger{
            Filename:   file,
            MaxSize:    20,
            MaxBackups: 5,
            MaxAge:     30,
        })
        fileCore := zapcore.NewCore(
            zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
            fileSink,
            lvl,
        )
        core = zapcore.NewTee(core, fileCore)
    }

    return zap.New(core), nil
}
