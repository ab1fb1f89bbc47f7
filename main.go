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

	"ride-dispatch/cmd/ctl"
	"ride-dispatch/cmd/demo"
	driversim "ride-dispatch/cmd/driver"
	"ride-dispatch/cmd/engine"
	passengersim "ride-dispatch/cmd/passenger"
	"ride-dispatch/cmd/token"
	"ride-dispatch/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config.yaml (default ./config/config.yaml)")
	cli.AttachUsage(fs, mode)

	var run func() error

	switch mode {
	case cli.ModeEngine:
		maxConc := fs.Int("max-concurrent", 50, "Maximum number of concurrent HTTP requests on the monitoring board")
		parseFlags(fs, modeArgs)
		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		run = func() error { return engine.Run(ctx, *configPath, *maxConc) }

	case cli.ModeDriver:
		id := fs.String("id", "", "Driver id (random when empty)")
		parseFlags(fs, modeArgs)
		run = func() error { return driversim.Run(ctx, *configPath, *id) }

	case cli.ModePassenger:
		id := fs.String("id", "", "Passenger id (random when empty)")
		pickup := fs.String("pickup", "Shopping Center Norte", "Pickup location")
		dest := fs.String("destination", "Aeroporto de Congonhas", "Destination")
		parseFlags(fs, modeArgs)
		run = func() error { return passengersim.Run(ctx, *configPath, *id, *pickup, *dest) }

	case cli.ModeCtl:
		parseFlags(fs, modeArgs)
		run = func() error { return ctl.Run(ctx, *configPath, fs.Args(), os.Stdout) }

	case cli.ModeDemo:
		broker := fs.String("broker", demo.BrokerMemory, "Message broker: memory or rabbitmq")
		parseFlags(fs, modeArgs)
		run = func() error { return demo.Run(ctx, *configPath, *broker) }

	case cli.ModeToken:
		subject := fs.String("subject", "operator", "Token subject")
		role := fs.String("role", "ADMIN", "Role claim")
		secret := fs.String("secret", "", "Signing secret (default admin.jwt_secret)")
		ttl := fs.Duration("ttl", 0, "Token lifetime (default admin.token_ttl)")
		parseFlags(fs, modeArgs)
		run = func() error { return token.Run(*configPath, *subject, *role, *secret, *ttl, os.Stdout) }

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	if err := run(); err != nil {
		if errors.Is(err, ctl.ErrUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
