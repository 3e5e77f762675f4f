package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/beaconkit/beacon/pkg/config"
)

const version = "0.3.0"

type globalFlags struct {
	ConfigArgs []string
	Service    string
	Timeout    time.Duration
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.LoadWithCLI(global.ConfigArgs)
	if err != nil {
		NewConfigError(err, configPath(global.ConfigArgs)).PrintError(global.JSON)
		os.Exit(1)
	}

	cmd := args[0]
	switch cmd {
	case "run":
		runRun(ctx, global, cfg, args[1:])
	case "check":
		runCheck(ctx, global, cfg, args[1:])
	case "provision":
		runProvision(global, cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		ensureNoArgs(args[1:])
		printVersion(global.JSON)
	default:
		fatal(fmt.Errorf("unknown command %q", cmd))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		Service: getenv("BEACON_SERVICE_NAME", "beacon"),
		Timeout: 10 * time.Second,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --set")
			}
			flags.ConfigArgs = append(flags.ConfigArgs, arg, args[i+1])
			i++
		case strings.HasPrefix(arg, "--set="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--observability" || strings.HasPrefix(arg, "--observability="):
			flags.ConfigArgs = append(flags.ConfigArgs, arg)
		case arg == "--service":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --service")
			}
			flags.Service = args[i+1]
			i++
		case strings.HasPrefix(arg, "--service="):
			flags.Service = strings.TrimPrefix(arg, "--service=")
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown flag %q", arg)
		}
	}
	return flags, nil, nil
}

// configPath extracts the --config value from the pass-through args so
// error hints can point at the right file.
func configPath(configArgs []string) string {
	for i := 0; i < len(configArgs); i++ {
		if configArgs[i] == "--config" && i+1 < len(configArgs) {
			return configArgs[i+1]
		}
		if strings.HasPrefix(configArgs[i], "--config=") {
			return strings.TrimPrefix(configArgs[i], "--config=")
		}
	}
	return ""
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func writeJSONLine(writer io.Writer, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		fatal(err)
	}
	_, _ = writer.Write(append(payload, '\n'))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func printVersion(asJSON bool) {
	if asJSON {
		writeJSONLine(os.Stdout, map[string]string{"version": version})
		return
	}
	fmt.Println(version)
}

func printUsage() {
	fmt.Print(`Beacon observability toolkit

Usage:
  beacon [global flags] <command> [args]

Global flags:
  --config <path>          Path to beacon.yaml
  --set key=value          Override config (repeatable)
  --observability[=bool]   Toggle metrics and tracing together
  --service <name>         Service name reported to collectors (default beacon)
  --timeout <dur>          Probe timeout for check (default 10s)
  --json                   JSON output

Commands:
  run                      Start telemetry and the log pipeline, wait for SIGINT/SIGTERM
  check                    Validate config and probe collector reachability
  provision <target>       Print collector config (prometheus|grafana|filebeat|logstash)
  version
  help
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}
