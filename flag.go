package main

import (
	"flag"
	"log/slog"
)

// defined flags
var (
	logLevel    slog.Level
	logFileFlag = flag.String("logfile", "", "Write logs to this file instead of the console")
	configFlag  = flag.String("config", "", "Path to the settings file (default $STAGEHAND_CONFIG or stagehand.yaml)")
	sceneFlag   = flag.String("scene", "", "Scene script to load at startup")
)

func init() {
	flag.TextVar(&logLevel, "loglevel", slog.LevelInfo, "set log level (debug, info, warn, error)")
}
