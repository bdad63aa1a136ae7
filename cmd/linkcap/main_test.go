package main

import (
	"bytes"
	"context"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/linkcap/core"
	"github.com/signalsfoundry/linkcap/internal/capacity"
	"github.com/signalsfoundry/linkcap/internal/config"
	"github.com/signalsfoundry/linkcap/internal/logging"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRunPrintsMaxBitrate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "reference", args: []string{"10", "20", "2.4e9", "40", "15", "4e-21", "20e6"}, want: "430921116\n"},
		{name: "negative gains", args: []string{"10", "-3", "2.4e9", "40", "-5", "4e-21", "20e6"}, want: "145422697\n"},
		{name: "unit gains", args: []string{"1", "0", "1e9", "1", "0", "1e-20", "1e6"}, want: "22767304\n"},
		{name: "below noise floor", args: []string{"1e-30", "0", "1e9", "1e6", "0", "1", "1"}, want: "0\n"},
		{name: "explicit terminator", args: []string{"--", "10", "-3", "2.4e9", "40", "-5", "4e-21", "20e6"}, want: "145422697\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, code := runCLI(t, tc.args...)
			if code != 0 {
				t.Fatalf("exit code = %d, want 0 (stdout=%q)", code, stdout)
			}
			if stdout != tc.want {
				t.Fatalf("stdout = %q, want %q", stdout, tc.want)
			}
		})
	}
}

func TestRunRejectsNonPositiveInputs(t *testing.T) {
	want := "Error: " + core.ValidationMessage + "\n"
	for _, args := range [][]string{
		{"0", "20", "2.4e9", "40", "15", "4e-21", "20e6"},
		{"10", "20", "-2.4e9", "40", "15", "4e-21", "20e6"},
		{"10", "20", "2.4e9", "0", "15", "4e-21", "20e6"},
		{"10", "20", "2.4e9", "40", "15", "-4e-21", "20e6"},
		{"10", "20", "2.4e9", "40", "15", "4e-21", "0"},
	} {
		stdout, stderr, code := runCLI(t, args...)
		if code != exitValidation {
			t.Fatalf("run(%v) exit code = %d, want %d", args, code, exitValidation)
		}
		if stdout != want {
			t.Fatalf("run(%v) stdout = %q, want %q", args, stdout, want)
		}
		// The message is the only output at the default log level.
		if stderr != "" {
			t.Fatalf("run(%v) stderr = %q, want empty", args, stderr)
		}
	}
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"10", "20", "2.4e9", "40", "15", "4e-21"},
		{"10", "20", "2.4e9", "40", "15", "4e-21", "20e6", "1"},
	} {
		stdout, _, code := runCLI(t, args...)
		if code != exitUsage {
			t.Fatalf("run(%v) exit code = %d, want %d", args, code, exitUsage)
		}
		if stdout != usageLine+"\n" {
			t.Fatalf("run(%v) stdout = %q, want usage line", args, stdout)
		}
	}
}

func TestRunRejectsUnparseableArguments(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{
			args: []string{"10", "20", "fast", "40", "15", "4e-21", "20e6"},
			want: `Error: invalid value "fast" for freq_hz: must be a finite number`,
		},
		{
			args: []string{"10", "20", "2.4e9", "40", "15", "4e-21", "inf"},
			want: `Error: invalid value "inf" for bw_hz: must be a finite number`,
		},
		{
			args: []string{"10", "-1e400", "2.4e9", "40", "15", "4e-21", "20e6"},
			want: `Error: invalid value "-1e400" for tx_gain_db: must be a finite number`,
		},
		{
			args: []string{"NaN", "20", "2.4e9", "40", "15", "4e-21", "20e6"},
			want: `Error: invalid value "NaN" for tx_w: must be a finite number`,
		},
	}

	for _, tc := range tests {
		stdout, _, code := runCLI(t, tc.args...)
		if code != exitUsage {
			t.Fatalf("run(%v) exit code = %d, want %d", tc.args, code, exitUsage)
		}
		if strings.TrimSpace(stdout) != tc.want {
			t.Fatalf("run(%v) stdout = %q, want %q", tc.args, stdout, tc.want)
		}
	}
}

func TestRunReportsNonFiniteCapacity(t *testing.T) {
	stdout, _, code := runCLI(t, "1.7976931348623157e308", "400", "1", "1e-300", "0", "1e-300", "1")
	if code != exitValidation {
		t.Fatalf("exit code = %d, want %d", code, exitValidation)
	}
	if stdout != nonFiniteMessage+"\n" {
		t.Fatalf("stdout = %q, want %q", stdout, nonFiniteMessage)
	}
}

func TestRunUnknownFlagIsUsageError(t *testing.T) {
	stdout, _, code := runCLI(t, "--frobnicate", "10", "20", "2.4e9", "40", "15", "4e-21", "20e6")
	if code != exitUsage {
		t.Fatalf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stdout, "unknown flag") {
		t.Fatalf("stdout = %q, want unknown flag error", stdout)
	}
}

func TestRunLogsOnlyToStderr(t *testing.T) {
	stdout, stderr, code := runCLI(t,
		"10", "-3", "2.4e9", "40", "-5", "4e-21", "20e6",
		"--log-level", "debug", "--log-format=json",
	)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if stdout != "145422697\n" {
		t.Fatalf("stdout = %q, want a single result line", stdout)
	}
	if !strings.Contains(stderr, `"msg":"evaluated link budget"`) {
		t.Fatalf("stderr = %q, want debug log", stderr)
	}
}

func TestRunReadsEnvironment(t *testing.T) {
	t.Setenv("LINKCAP_LOG_LEVEL", "debug")
	t.Setenv("LINKCAP_LOG_BACKEND", logging.BackendLogrus)

	stdout, stderr, code := runCLI(t, "10", "20", "2.4e9", "40", "15", "4e-21", "20e6")
	if code != 0 || stdout != "430921116\n" {
		t.Fatalf("run = (%q, %d), want (430921116, 0)", stdout, code)
	}
	if !strings.Contains(stderr, "evaluated link budget") {
		t.Fatalf("stderr = %q, want debug log from env-configured level", stderr)
	}
}

func TestRunTracingToStderr(t *testing.T) {
	t.Setenv("LINKCAP_TRACING_ENABLED", "true")

	stdout, stderr, code := runCLI(t, "10", "20", "2.4e9", "40", "15", "4e-21", "20e6")
	if code != 0 || stdout != "430921116\n" {
		t.Fatalf("run = (%q, %d), want (430921116, 0)", stdout, code)
	}
	if !strings.Contains(stderr, "linkcap.evaluate") {
		t.Fatalf("stderr = %q, want exported span", stderr)
	}
}

func TestSplitArgs(t *testing.T) {
	root := newRootCmd(&app{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}})

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty", in: nil, want: nil},
		{name: "positionals", in: []string{"1", "-2"}, want: []string{"--", "1", "-2"}},
		{
			name: "flag with value",
			in:   []string{"--log-level", "debug", "-3", "4"},
			want: []string{"--log-level", "debug", "--", "-3", "4"},
		},
		{
			name: "trailing flags",
			in:   []string{"-3", "4", "--log-format=json"},
			want: []string{"--log-format=json", "--", "-3", "4"},
		},
		{name: "subcommand", in: []string{"serve", "--grpc-addr", ":0"}, want: []string{"serve", "--grpc-addr", ":0"}},
		{
			name: "flag before subcommand",
			in:   []string{"--log-level", "info", "serve"},
			want: []string{"--log-level", "info", "serve"},
		},
		{name: "help", in: []string{"help"}, want: []string{"help"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := splitArgs(root, tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("splitArgs(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestServeEvaluatesOverGRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- serve(serveCtx, config.ServeConfig{}, logging.Noop(), lis, prometheus.NewRegistry())
	}()

	client, conn, err := capacity.Dial(lis.Addr().String())
	if err != nil {
		stop()
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	resp, err := client.Evaluate(ctx, core.LinkBudget{
		TxPowerW:      10,
		TxGainDB:      20,
		FrequencyHz:   2.4e9,
		DistanceKm:    40,
		RxGainDB:      15,
		NoiseDensityJ: 4e-21,
		BandwidthHz:   20e6,
	})
	if err != nil {
		stop()
		t.Fatalf("Evaluate: %v", err)
	}
	if got := resp.GetFields()["max_bitrate"].GetStringValue(); got != "430921116" {
		t.Fatalf("max_bitrate = %q, want 430921116", got)
	}

	stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("serve did not stop after cancellation")
	}
}

func TestServeMetricsDisabled(t *testing.T) {
	if srv := serveMetrics("", nil, logging.Noop()); srv != nil {
		t.Fatalf("serveMetrics(\"\") = %v, want nil", srv)
	}
}

func TestRunWarnLevelLogsRejection(t *testing.T) {
	_, stderr, code := runCLI(t, "--log-level=warn", "0", "20", "2.4e9", "40", "15", "4e-21", "20e6")
	if code != exitValidation {
		t.Fatalf("exit code = %d, want %d", code, exitValidation)
	}
	if !strings.Contains(stderr, "link budget rejected") {
		t.Fatalf("stderr = %q, want rejection log at warn level", stderr)
	}
}
