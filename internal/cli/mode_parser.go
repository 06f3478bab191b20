package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeRide     = "ride-service"
	ModeDriver   = "driver-service"
	ModeMatching = "matching-service"
	ModeGateway  = "gateway-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeRide, "ride", "r":
		return ModeRide, true
	case ModeDriver, "driver", "d":
		return ModeDriver, true
	case ModeMatching, "matching", "m":
		return ModeMatching, true
	case ModeGateway, "gateway", "g":
		return ModeGateway, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `ride-service --max-concurrent=150`
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
  ./ride-hail-system --mode=<service> [flags]

Services (modes):
  ride-service      rider-initiated lifecycle: create requests, drive the ride FSM
  driver-service    driver availability/position writes, driver-initiated FSM events
  matching-service  nearest-driver matching over the live driver index
  gateway-service   WebSocket fan-out: rider/driver/ride sessions, nearby-drivers

Examples:
  ./ride-hail-system --mode=ride-service --max-concurrent=150
  ./ride-hail-system --mode=driver-service --max-concurrent=150
  ./ride-hail-system --mode=matching-service
  ./ride-hail-system --mode=gateway-service --max-concurrent=300`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./ride-hail-system --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
