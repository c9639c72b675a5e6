package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arkade-os/relayd/internal/config"
	httpservice "github.com/arkade-os/relayd/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

const (
	appName = "relayd"
)

func mainAction(ctx *cli.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := httpservice.Config{
		Port:              cfg.Port,
		AdminPort:         cfg.AdminPort,
		HeartbeatInterval: cfg.HeartbeatInterval,
		EnablePprof:       cfg.EnablePprof,
	}

	svc, err := httpservice.NewService(Version, svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("relayd config: %s", cfg)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	log.RegisterExitHandler(svc.Stop)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

func main() {
	if Version != "" {
		config.Version = Version
	}

	app := cli.NewApp()
	app.Version = Version
	app.Name = appName
	app.Usage = "run a cross-chain asset relay or manage it through its admin API"
	app.UsageText = "Run the relay daemon, or use the admin subcommands against a running one"
	app.Commands = append(app.Commands, versionCmd, adminCmd)
	app.Action = mainAction
	app.Flags = config.Flags

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
