package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/linkcap/core"
	"github.com/signalsfoundry/linkcap/internal/config"
	"github.com/signalsfoundry/linkcap/internal/logging"
	"github.com/signalsfoundry/linkcap/internal/observability"
)

const (
	usageLine        = "Usage: linkcap tx_w tx_gain_db freq_hz dist_km rx_gain_db n0_j bw_hz"
	nonFiniteMessage = "Error: capacity is not a finite number."
	exitValidation   = 1
	exitUsage        = 2
)

// argNames lists the positional arguments in order.
var argNames = [...]string{"tx_w", "tx_gain_db", "freq_hz", "dist_km", "rx_gain_db", "n0_j", "bw_hz"}

// usageError is printed verbatim to stdout and exits with exitUsage.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	log      logging.Logger
	shutdown func(context.Context) error
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, log: logging.Noop()}
	root := newRootCmd(a)
	root.SetArgs(splitArgs(root, args))

	err := root.ExecuteContext(ctx)
	observability.ShutdownWithTimeout(context.Background(), a.shutdown, a.log)
	return a.report(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "linkcap tx_w tx_gain_db freq_hz dist_km rx_gain_db n0_j bw_hz",
		Short: "Shannon-Hartley capacity of a free-space radio link",
		Long: `linkcap prints the maximum error-free bitrate, in bits per second, of a
free-space link described by transmit power (W), transmit gain (dB),
carrier frequency (Hz), distance (km), receive gain (dB), noise spectral
density (J) and bandwidth (Hz).`,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.evaluate(cmd.Context(), args)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{msg: fmt.Sprintf("Error: %v\nUsage: %s", err, cmd.UseLine())}
	})

	pf := root.PersistentFlags()
	pf.String("log-level", "error", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-backend", logging.BackendSlog, "logging backend: slog or logrus")

	root.AddCommand(newServeCmd(a))
	return root
}

// setup resolves configuration for the executing command and installs the
// logger and tracer provider. Logs and spans go to stderr only.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Log.Writer = a.stderr
	cfg.Tracing.Writer = a.stderr
	a.cfg = cfg
	a.log = logging.New(cfg.Log)

	shutdown, err := observability.InitTracing(cmd.Context(), cfg.Tracing, a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) evaluate(ctx context.Context, args []string) error {
	lb, err := parseArgs(args)
	if err != nil {
		return err
	}

	res, err := observability.Evaluate(ctx, nil, observability.SourceCLI, lb)
	if err != nil {
		a.log.Warn(ctx, "link budget rejected", logging.Error(err))
		return err
	}

	a.log.Debug(ctx, "evaluated link budget",
		logging.Float64("path_loss_db", res.PathLossDB),
		logging.Float64("received_power_dbw", res.ReceivedPowerDBW),
		logging.Float64("noise_power_w", res.NoisePowerW),
		logging.Float64("snr_db", res.SNRDB),
		logging.String("quality", string(res.Quality)),
	)
	_, err = fmt.Fprintln(a.stdout, res.FormatBitrate())
	return err
}

// report prints the outcome of err and returns the process exit code.
func (a *app) report(err error) int {
	var (
		uerr usageError
		verr *core.ValidationError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr):
		fmt.Fprintln(a.stdout, uerr.msg)
		return exitUsage
	case errors.As(err, &verr):
		fmt.Fprintln(a.stdout, "Error: "+core.ValidationMessage)
		return exitValidation
	case errors.Is(err, core.ErrNonFinite):
		fmt.Fprintln(a.stdout, nonFiniteMessage)
		return exitValidation
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
}

func parseArgs(args []string) (core.LinkBudget, error) {
	if len(args) != len(argNames) {
		return core.LinkBudget{}, usageError{msg: usageLine}
	}

	var v [len(argNames)]float64
	for i, arg := range args {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return core.LinkBudget{}, usageError{
				msg: fmt.Sprintf("Error: invalid value %q for %s: must be a finite number", arg, argNames[i]),
			}
		}
		v[i] = f
	}

	return core.LinkBudget{
		TxPowerW:      v[0],
		TxGainDB:      v[1],
		FrequencyHz:   v[2],
		DistanceKm:    v[3],
		RxGainDB:      v[4],
		NoiseDensityJ: v[5],
		BandwidthHz:   v[6],
	}, nil
}

// splitArgs moves positional arguments behind "--" so that negative
// numbers such as -3 reach the command as values instead of being parsed
// as shorthand flags. Subcommand invocations are returned unchanged.
func splitArgs(root *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return args
	}

	fs := root.PersistentFlags()
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if isNumber(arg) || !strings.HasPrefix(arg, "-") || arg == "-" {
			if len(positional) == 0 && isSubcommand(root, arg) {
				return args
			}
			positional = append(positional, arg)
			continue
		}

		flags = append(flags, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if f := lookupFlag(fs, arg); f != nil && f.NoOptDefVal == "" && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}

	out := make([]string, 0, len(flags)+1+len(positional))
	out = append(out, flags...)
	out = append(out, "--")
	return append(out, positional...)
}

func lookupFlag(fs *pflag.FlagSet, arg string) *pflag.Flag {
	if strings.HasPrefix(arg, "--") {
		return fs.Lookup(strings.TrimPrefix(arg, "--"))
	}
	if name := strings.TrimPrefix(arg, "-"); len(name) == 1 {
		return fs.ShorthandLookup(name)
	}
	return nil
}

// isNumber reports whether s is numeric, including out-of-range values
// such as -1e400 that parseArgs later rejects with a clear message.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}

func isSubcommand(root *cobra.Command, name string) bool {
	if name == "help" {
		return true
	}
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}
