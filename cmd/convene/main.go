// Command convene runs the real-time conference server for autonomous
// conversational agents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/convene/convene/internal/config"
	"github.com/convene/convene/internal/logging"
	"github.com/convene/convene/internal/server"
)

var version = "dev"

func main() {
	logging.Setup()

	showVersion := flag.Bool("version", false, "print version and exit")
	cfg := config.DefineFlags()
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.PrintBanner(version, cfg.Addr)

	srv, err := server.New(cfg)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.PrintListening(cfg.Addr)
	logging.PrintQRCode("ws://localhost" + cfg.Addr + "/ws")
	if err := srv.Serve(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
