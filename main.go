package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	admindashboard "food-dispatch/cmd/admin_service"
	dispatchservice "food-dispatch/cmd/dispatch_service"
	orderservice "food-dispatch/cmd/order_service"
	"food-dispatch/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {

	case cli.ModeOrder:
		maxConc, ok := parseMaxConcurrent(cli.ModeOrder, svcArgs, 100)
		if !ok {
			os.Exit(2)
		}
		if err := orderservice.Run(ctx, maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeDispatch:
		maxConc, ok := parseMaxConcurrent(cli.ModeDispatch, svcArgs, 200)
		if !ok {
			os.Exit(2)
		}
		if err := dispatchservice.Run(ctx, maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeAdmin:
		maxConc, ok := parseMaxConcurrent(cli.ModeAdmin, svcArgs, 50)
		if !ok {
			os.Exit(2)
		}
		if err := admindashboard.Run(ctx, maxConc); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

// parseMaxConcurrent parses per-mode flags and validates the limiter size.
func parseMaxConcurrent(mode string, args []string, def int) (int, bool) {
	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	maxConc := fs.Int("max-concurrent", def, "Maximum number of concurrent HTTP requests to process")
	cli.AttachUsage(fs, mode)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 0, false
	}
	if *maxConc < 1 {
		fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
		fs.Usage()
		return 0, false
	}
	return *maxConc, true
}
