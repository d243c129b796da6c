package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeOrder    = "order-service"
	ModeDispatch = "dispatch-service"
	ModeAdmin    = "admin-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeOrder, "order", "o":
		return ModeOrder, true
	case ModeDispatch, "dispatch", "driver-service", "d":
		return ModeDispatch, true
	case ModeAdmin, "admin", "a":
		return ModeAdmin, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `order-service --max-concurrent=100`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./food-dispatch --mode=<service> [flags]

Services (modes):
  order-service                HTTP API and orchestrator for order lifecycle
  dispatch-service             Driver ops, offer dispatch, and real-time locations
  admin-service                Admin monitoring and metrics API

Examples:
  ./food-dispatch --mode=order-service --max-concurrent=150
  ./food-dispatch --mode=dispatch-service --max-concurrent=200
  ./food-dispatch --mode=admin-service --max-concurrent=50`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./food-dispatch --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
