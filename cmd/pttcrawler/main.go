package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ptt_crawler/internal/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type globalOptions struct {
	configPath string
	debug      bool
	output     string
	userAgent  string
	proxy      string
	timeout    time.Duration
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts globalOptions
	fs := flag.NewFlagSet("pttcrawler", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.StringVar(&opts.output, "output", "", "write JSON result to this file instead of stdout")
	fs.StringVar(&opts.userAgent, "user-agent", "", "User-Agent header sent to PTT")
	fs.StringVar(&opts.proxy, "proxy", "", "proxy URL for all requests")
	fs.DurationVar(&opts.timeout, "timeout", 0, "HTTP request timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: pttcrawler [flags] <command> [args]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Commands:")
		fmt.Fprintln(stderr, "  board [-range a[,b]] <board>   crawl a board's pages")
		fmt.Fprintln(stderr, "  url <url>                      crawl a single article")
		fmt.Fprintln(stderr, "  boards                         list known boards")
		fmt.Fprintln(stderr, "  runs [-limit n] <board>        show recorded crawl runs")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logger := setupLogger(cfg.LogLevel, stderr)

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "boards":
		err = runBoards(stdout)
	case "board":
		err = runBoard(ctx, cfg, opts, cmdArgs, stdout, stderr, logger)
	case "url":
		err = runURL(ctx, cfg, opts, cmdArgs, stdout, logger)
	case "runs":
		err = runRuns(ctx, cfg, opts, cmdArgs, stdout, stderr, logger)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	case errors.Is(err, context.Canceled):
		logger.Info("interrupted")
		return exitOK
	default:
		logger.Error("command failed", "command", cmd, "error", err)
		return exitError
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts globalOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.debug {
		cfg.LogLevel = "debug"
	}
	if opts.userAgent != "" {
		cfg.Crawler.UserAgent = opts.userAgent
	}
	if opts.proxy != "" {
		cfg.Crawler.Proxy = opts.proxy
	}
	if opts.timeout > 0 {
		cfg.Crawler.Timeout = opts.timeout
	}
	return cfg, nil
}

func setupLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

// pageRange is the -range flag: one or two page numbers separated by a comma.
type pageRange []int

func (r *pageRange) String() string {
	parts := make([]string, len(*r))
	for i, n := range *r {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (r *pageRange) Set(s string) error {
	fields := strings.Split(s, ",")
	if len(fields) > 2 {
		return fmt.Errorf("expected a or a,b")
	}
	bounds := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return fmt.Errorf("invalid page %q", f)
		}
		bounds = append(bounds, n)
	}
	*r = bounds
	return nil
}
