package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/onebyte/internal/config"
	"github.com/danmuck/onebyte/internal/daemon"
	"github.com/danmuck/onebyte/internal/logging"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/observability"
)

func main() {
	path := flag.String("config", "", "daemon config path (defaults when empty)")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := config.DefaultDaemonConfig()
	if *path != "" {
		loaded, err := config.LoadDaemonConfig(*path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "onebyted: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if lvl, ok := cfg.Level(); ok {
		logs.SetLevel(lvl)
	}
	observability.InitLogger(cfg.Name)

	if err := daemon.NewService(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "onebyted: %v\n", err)
		os.Exit(1)
	}
}
