// cadence-check is a diagnostic tool for inspecting a running cadence daemon.
// It connects like any other client, runs a handful of read-only commands and
// prints a short health report.
//
// This tool is the first line of defense when troubleshooting a deployment.
// It can answer questions like:
//
//   - Is the daemon reachable and speaking the protocol?
//   - Is the password accepted, and what may it do?
//   - What is the player doing, and how large is the database?
//   - Are change notifications being delivered?
//
// Usage Examples
// ==============
//
// Basic check (ping, status, stats, outputs):
//
//	cadence-check --addr localhost:6600
//
// Authenticated check:
//
//	cadence-check --addr localhost:6600 --password secret
//
// Watch mode (waits for change notifications and prints them):
//
//	cadence-check --watch player,mixer --events 3 --timeout 30s
//
// Exit Codes
// ==========
//
// 0: The daemon is healthy.
// 1: The daemon is unreachable, rejected a command, or watch mode timed out.
// 2: Invalid command line.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	flag "github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// options holds the parsed command line.
type options struct {
	addr     string
	password string
	watch    []string
	events   int
	timeout  time.Duration
	verbose  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	flags := flag.NewFlagSet("cadence-check", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.addr, "addr", "a", "localhost:6600", "Daemon address (host:port)")
	flags.StringVarP(&opts.password, "password", "p", "", "Password to authenticate with")
	flags.StringSliceVarP(&opts.watch, "watch", "w", nil, "Wait for changes in these subsystems")
	flags.IntVar(&opts.events, "events", 1, "Number of change events to wait for in watch mode")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "How long watch mode waits")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every status and stats field")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	if opts.events < 1 {
		return nil, errors.New("--events must be at least 1")
	}
	return opts, nil
}

// run executes the check and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "[err] %v\n", err)
		return exitUsage
	}

	fmt.Fprintf(stdout, "Checking cadence daemon at %s\n", opts.addr)

	client, err := mpd.DialAuthenticated("tcp", opts.addr, opts.password)
	if err != nil {
		fmt.Fprintf(stderr, "[err] Cannot connect: %v\n", err)
		return exitFailure
	}
	defer func() { _ = client.Close() }()

	start := time.Now()
	if err := client.Ping(); err != nil {
		fmt.Fprintf(stderr, "[err] Ping failed: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "[ok] Ping (%v)\n", time.Since(start).Round(time.Microsecond))

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(stderr, "[err] Status failed: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "[ok] Status: %s\n", summarizeStatus(status))

	stats, err := client.Stats()
	if err != nil {
		fmt.Fprintf(stderr, "[err] Stats failed: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "[ok] Stats: %s songs, up %ss\n", orDash(stats["songs"]), orDash(stats["uptime"]))

	outputs, err := client.ListOutputs()
	if err != nil {
		fmt.Fprintf(stderr, "[err] Outputs failed: %v\n", err)
		return exitFailure
	}
	for _, o := range outputs {
		state := "disabled"
		if o["outputenabled"] == "1" {
			state = "enabled"
		}
		fmt.Fprintf(stdout, "[ok] Output %s %q %s\n", o["outputid"], o["outputname"], state)
	}

	if opts.verbose {
		printAttrs(stdout, "status", status)
		printAttrs(stdout, "stats", stats)
	}

	if len(opts.watch) > 0 {
		return watch(opts, stdout, stderr)
	}
	return exitOK
}

// watch waits for opts.events change notifications.
func watch(opts *options, stdout, stderr io.Writer) int {
	w, err := mpd.NewWatcher("tcp", opts.addr, opts.password, opts.watch...)
	if err != nil {
		fmt.Fprintf(stderr, "[err] Cannot start watcher: %v\n", err)
		return exitFailure
	}
	defer func() { _ = w.Close() }()

	fmt.Fprintf(stdout, "Watching %s for %d event(s)\n", strings.Join(opts.watch, ","), opts.events)

	deadline := time.After(opts.timeout)
	for seen := 0; seen < opts.events; {
		select {
		case subsystem := <-w.Event:
			seen++
			fmt.Fprintf(stdout, "[event] changed: %s\n", subsystem)
		case err := <-w.Error:
			fmt.Fprintf(stderr, "[err] Watcher: %v\n", err)
			return exitFailure
		case <-deadline:
			fmt.Fprintf(stderr, "[err] Timed out after %v with %d of %d event(s)\n", opts.timeout, seen, opts.events)
			return exitFailure
		}
	}
	return exitOK
}

// summarizeStatus renders the interesting status fields on one line.
func summarizeStatus(st mpd.Attrs) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "state=%s volume=%s queue=%s", orDash(st["state"]), orDash(st["volume"]), orDash(st["playlistlength"]))
	if song, ok := st["song"]; ok {
		fmt.Fprintf(&sb, " song=%s", song)
	}
	if job, ok := st["updating_db"]; ok {
		fmt.Fprintf(&sb, " updating=%s", job)
	}
	if msg, ok := st["error"]; ok {
		fmt.Fprintf(&sb, " error=%q", msg)
	}
	return sb.String()
}

func printAttrs(w io.Writer, title string, attrs mpd.Attrs) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %s\n", k, attrs[k])
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
