package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig enables rotating file output
type FileConfig struct {
	Path       string `yaml:"path" json:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"` // default 100
	MaxBackups int    `yaml:"max_backups" json:"max_backups"` // default 3
	MaxAge     int    `yaml:"max_age" json:"max_age"`         // days, default 28
	Compress   bool   `yaml:"compress" json:"compress"`
}

// NewWithFile creates a logger writing to stdout and, when file.Path is set,
// to a rotating log file. Colors are turned off whenever a file is written
// so the file stays free of escape codes.
func NewWithFile(module string, level Level, useColors bool, file *FileConfig) (*StdLogger, io.Closer) {
	if file == nil || file.Path == "" {
		return NewConsole(module, level, useColors), nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    orDefault(file.MaxSizeMB, 100),
		MaxBackups: orDefault(file.MaxBackups, 3),
		MaxAge:     orDefault(file.MaxAge, 28),
		Compress:   file.Compress,
	}

	return New(module, level, io.MultiWriter(os.Stdout, rotator), false), rotator
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
