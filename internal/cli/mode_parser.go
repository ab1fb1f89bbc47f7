package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeEngine    = "engine"
	ModeDriver    = "driver"
	ModePassenger = "passenger"
	ModeCtl       = "ctl"
	ModeDemo      = "demo"
	ModeToken     = "token"
)

// isKnownMode resolves a mode name or alias.
func isKnownMode(s string) (string, bool) {
	switch strings.ToLower(s) {
	case ModeEngine, "e", "dispatch-engine":
		return ModeEngine, true
	case ModeDriver, "d":
		return ModeDriver, true
	case ModePassenger, "p":
		return ModePassenger, true
	case ModeCtl, "c":
		return ModeCtl, true
	case ModeDemo:
		return ModeDemo, true
	case ModeToken, "key":
		return ModeToken, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `driver --id=joao`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
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
		return "", out, errors.New("no mode specified: use --mode=<mode>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}
	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./ride-dispatch --mode=<mode> [flags]

Modes:
  engine        Dispatch Engine, command consumer and monitoring board
  driver        one simulated driver
  passenger     one simulated passenger
  ctl           operator tool: monitor | list | update | cancel | test
  demo          engine, three drivers and three passengers in one process
  token         mint an operator token for the monitoring board

Examples:
  ./ride-dispatch --mode=engine --max-concurrent=50
  ./ride-dispatch driver --id=driver_joao
  ./ride-dispatch passenger --id=ana --pickup="Estação da Sé" --destination="Teatro Municipal"
  ./ride-dispatch ctl list PENDING
  ./ride-dispatch demo --broker=memory
  ./ride-dispatch token --subject=ops --role=ADMIN`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./ride-dispatch --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
