package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hwbot/internal/app"
	"hwbot/internal/config"
	logx "hwbot/pkg/logx"
)

func main() {
	var cfgPath, envPath string
	flag.StringVar(&cfgPath, "config", "", "path to optional config json/yaml (empty: environment only)")
	flag.StringVar(&envPath, "env", ".env", "path to optional .env file")
	flag.Usage = config.EnvUsage(os.Stderr, func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	})
	flag.Parse()

	bootLog := logx.NewConsole("info").With(logx.String("comp", "main"))

	if err := config.LoadDotEnv(envPath); err != nil {
		bootLog.Error("critical: cannot load env file", logx.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{ConfigPath: cfgPath})
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			bootLog.Error("critical: required configuration is missing, exiting", logx.Err(err))
		} else {
			bootLog.Error("critical: startup failed", logx.Err(err))
		}
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		bootLog.Error("critical: start failed", logx.Err(err))
		os.Exit(1)
	}

	<-a.Done()
	reason := app.StopSignal
	if a.Err() != nil {
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil {
		bootLog.Error("stopped with error", logx.Err(err))
		stopCancel()
		os.Exit(1)
	}
}
