package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chazu/stagehand/pkg/config"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/persist/httpapi"
	"github.com/chazu/stagehand/pkg/persist/sqlite"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	flag.Parse()
	slog.SetLogLoggerLevel(logLevel)
	if *logFileFlag != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFileFlag,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		})
	}

	path := *configFlag
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	ps, err := openPersistence(context.Background(), cfg.Persistence)
	if err != nil {
		log.Fatalf("Failed to open persistence: %s", err)
	}

	app := NewApp(cfg, ps)
	if *sceneFlag != "" {
		src, err := os.ReadFile(*sceneFlag)
		if err != nil {
			log.Fatal(err)
		}
		if res := app.LoadScene(string(src)); len(res.Errors) > 0 {
			for _, e := range res.Errors {
				slog.Error("Scene error", "file", *sceneFlag, "line", e.Line, "message", e.Message)
			}
			os.Exit(1)
		}
	}

	err = wails.Run(&options.App{
		Title:  "Stagehand",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}

// openPersistence returns the collaborator selected by cfg.Driver. The
// "none" driver keeps placements in an in-memory database for the session.
func openPersistence(ctx context.Context, cfg config.Persistence) (persist.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverNone:
		return sqlite.Open(ctx, ":memory:")
	case config.DriverHTTP:
		timeout, err := cfg.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		return httpapi.New(cfg.BaseURL, httpapi.Options{MaxRetries: cfg.MaxRetries, Timeout: timeout}), nil
	}
	return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
}
