package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"ptt_crawler/internal/config"
	"ptt_crawler/internal/domain"
	"ptt_crawler/internal/output"
	"ptt_crawler/internal/parser"
	"ptt_crawler/internal/publisher"
	"ptt_crawler/internal/scheduler"
	"ptt_crawler/internal/service"
	"ptt_crawler/internal/source/ptt"
	"ptt_crawler/internal/storage/sqldb"
)

func runBoards(stdout io.Writer) error {
	for _, b := range domain.Boards() {
		if _, err := fmt.Fprintln(stdout, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func runBoard(ctx context.Context, cfg *config.Config, opts globalOptions, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	var bounds pageRange
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&bounds, "range", "page range a[,b]; page 0 is the newest page")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: board expects exactly one board name", errUsage)
	}

	board := domain.ParseBoardName(fs.Arg(0))
	if board == domain.BoardUnknown {
		return fmt.Errorf("%w: unknown board %q, run 'pttcrawler boards' for the list", errUsage, fs.Arg(0))
	}

	app, err := newApp(ctx, cfg, logger, service.Job{Board: board, Bounds: bounds})
	if err != nil {
		return err
	}
	defer app.Close()

	writer := output.New(opts.output, stdout, logger)

	if cfg.Schedule.Interval > 0 {
		runner := &writingRunner{service: app.service, writer: writer, logger: logger}
		return scheduler.NewScheduler(runner, cfg.Schedule.Interval, cfg.Schedule.RunTimeout, logger).Start(ctx)
	}

	result, err := app.service.Run(ctx)
	if result != nil {
		if _, werr := writer.Write(result.Articles); werr != nil {
			return werr
		}
	}
	return err
}

func runURL(ctx context.Context, cfg *config.Config, opts globalOptions, args []string, stdout io.Writer, logger *slog.Logger) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: url expects exactly one article URL", errUsage)
	}

	app, err := newApp(ctx, cfg, logger, service.Job{})
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.service.CrawlURL(ctx, args[0])
	if result != nil {
		if _, werr := output.New(opts.output, stdout, logger).Write(result.Articles); werr != nil {
			return werr
		}
	}
	return err
}

func runRuns(ctx context.Context, cfg *config.Config, opts globalOptions, args []string, stdout, stderr io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 10, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: runs expects exactly one board name", errUsage)
	}
	if cfg.Storage.Driver == config.DriverNone {
		return fmt.Errorf("%w: runs needs storage.driver in the config file", errUsage)
	}

	db, err := sqldb.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	runs, err := sqldb.NewRunStore(db).Recent(ctx, fs.Arg(0), *limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []domain.CrawlStats{}
	}
	_, err = output.New(opts.output, stdout, logger).Write(runs)
	return err
}

// writingRunner writes every scheduled result the same way a single run does.
type writingRunner struct {
	service *service.CrawlService
	writer  *output.Writer
	logger  *slog.Logger
}

func (r *writingRunner) Run(ctx context.Context) (*domain.CrawlResult, error) {
	result, err := r.service.Run(ctx)
	if result != nil {
		if path, werr := r.writer.Write(result.Articles); werr != nil {
			r.logger.Error("write result", "error", werr)
		} else {
			r.logger.Debug("result written", "path", path)
		}
	}
	return result, err
}

type app struct {
	service *service.CrawlService
	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, job service.Job) (*app, error) {
	a := &app{logger: logger}

	pttCfg := ptt.Config{
		BaseURL:         cfg.Crawler.BaseURL,
		UserAgent:       cfg.Crawler.UserAgent,
		Proxy:           cfg.Crawler.Proxy,
		Timeout:         cfg.Crawler.Timeout,
		Concurrency:     cfg.Crawler.Concurrency,
		PageConcurrency: cfg.Crawler.PageConcurrency,
		MaxAttempts:     cfg.Crawler.Retry.MaxAttempts,
		InitialBackoff:  cfg.Crawler.Retry.InitialBackoff,
		MaxBackoff:      cfg.Crawler.Retry.MaxBackoff,
	}

	client, err := ptt.NewClient(ctx, pttCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create ptt client: %w", err)
	}
	crawler, err := ptt.NewCrawler(client, parser.New(logger), pttCfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		articles  service.ArticleStore
		runs      service.RunStore
		txManager service.TransactionManager
		pub       service.Publisher
	)

	if cfg.Storage.Driver != config.DriverNone {
		db, err := sqldb.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)

		articles = sqldb.NewArticleStore(db)
		runs = sqldb.NewRunStore(db)
		txManager = sqldb.NewTransactionManager(db)
	}

	if cfg.RabbitMQ.URL != "" {
		rabbit, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rabbit.Close)
		pub = rabbit
	}

	a.service = service.NewCrawlService(crawler, articles, runs, txManager, pub, logger, job)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
