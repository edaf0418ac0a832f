package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/zap"
	_ "github.com/joho/godotenv/autoload"

	benchconfig "github.com/songquanpeng/visionbench/bench/config"
	"github.com/songquanpeng/visionbench/bench/report"
	"github.com/songquanpeng/visionbench/bench/runner"
	"github.com/songquanpeng/visionbench/common"
	"github.com/songquanpeng/visionbench/common/logger"
)

func main() {
	common.Init()

	logger.Logger.Info("visionbench started", zap.String("version", common.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := benchconfig.Load(*common.ConfigPath)
	if err != nil {
		logger.Logger.Fatal("load configuration", zap.Error(err))
	}
	if *common.ImageDir != "" {
		cfg.ImageDir = *common.ImageDir
	}
	if *common.OutputDir != "" {
		cfg.OutputDir = *common.OutputDir
	}

	out, err := runner.New(cfg).Run(ctx)
	if err != nil {
		logger.Logger.Fatal("benchmark run failed", zap.Error(err))
	}

	path, err := report.Write(out.Results, cfg.OutputDir, time.Now())
	if err != nil {
		logger.Logger.Fatal("write results", zap.Error(err))
	}

	report.Render(os.Stdout, out.RunID, out.Results, path)
}
