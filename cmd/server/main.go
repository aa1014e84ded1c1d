package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/thereceipt/label-designer/internal/api"
	"github.com/thereceipt/label-designer/internal/config"
	"github.com/thereceipt/label-designer/internal/designer"
	"github.com/thereceipt/label-designer/internal/fonts"
	"github.com/thereceipt/label-designer/internal/logger"
	"github.com/thereceipt/label-designer/internal/metrics"
	"github.com/thereceipt/label-designer/internal/power"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/repository"
	"github.com/thereceipt/label-designer/internal/tui"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "label-designer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("label-designer", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] [printer]\n\nprinter is a device descriptor such as tcp://192.168.1.21:9100, usb://0x04f9:0x2015 or /dev/usb/lp0\n\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := cfg.ParseFlags(fs, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logs := tui.NewLogBuffer(tui.DefaultLogLines)
	log, err := logger.New(logger.Options{
		Development: cfg.Development(),
		Level:       cfg.Server.LogLevel,
		Tee:         logs,
		TeeOnly:     !cfg.Server.Headless,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	folders := fonts.SystemFolders()
	if cfg.FontFolder != "" {
		folders = append([]string{cfg.FontFolder}, folders...)
	}
	resolver, err := fonts.NewResolver(fonts.Options{
		Folders:       folders,
		Builtin:       cfg.FontBuiltin,
		DefaultFamily: cfg.Label.FontFamily,
		DefaultStyle:  cfg.Label.FontStyle,
	}, log.Named("fonts"))
	if err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}
	faces := fonts.NewCache(fonts.NewOpenTypeLoader(), log.Named("fonts"))

	store, err := repository.New(cfg.RepositoryDir, log)
	if err != nil {
		return err
	}

	encoder, err := printer.NewEncoder(cfg.Printer.Protocol)
	if err != nil {
		return err
	}
	pool := printer.NewPool(nil, log)
	defer pool.DisconnectAll()

	journal := printer.NewJournal(printer.DefaultJournalSize)
	settings := designer.PrinterSettings{
		Device:     cfg.Printer.Device,
		Model:      cfg.Printer.Model,
		Simulation: cfg.Printer.Simulation,
		Encoder:    encoder,
		Pool:       pool,
		Journal:    journal,
	}
	factory := designer.NewFactory(resolver, faces, store, log)

	scanner := printer.NewScanner(printer.ScannerConfig{
		Device:     cfg.Printer.Device,
		Model:      cfg.Printer.Model,
		Simulation: cfg.Printer.Simulation,
		USBScan:    cfg.Printer.USBScan,
	}, nil, log)

	m := metrics.New()
	journal.OnFinished(m.ObserveJob)

	powerClient := power.NewClient(power.Config{
		URL:      cfg.HomeAssistant.URL,
		Token:    cfg.HomeAssistant.Token,
		EntityID: cfg.HomeAssistant.EntityID,
	}, &http.Client{Timeout: power.DefaultTimeout}, log)
	// a toggled printer appears or vanishes, the cached scan is stale
	powerClient.OnToggle(scanner.Reset)

	server := api.NewServer(api.Deps{
		Config:     cfg,
		Factory:    factory,
		Fonts:      resolver,
		Printer:    settings,
		Scanner:    scanner,
		Repository: store,
		Power:      powerClient,
		Metrics:    m,
		Log:        log,
	})

	var dashboard *tui.App
	if !cfg.Server.Headless {
		dashboard = tui.New(tui.Deps{
			Scanner: scanner,
			Journal: journal,
			Labels:  store,
			Print: func(ctx context.Context, req *labelformat.Request) (string, error) {
				return factory.Print(ctx, req, nil, settings)
			},
			Logs:      logs,
			Addr:      cfg.Addr(),
			Model:     cfg.Printer.Model,
			LabelSize: cfg.Label.Size,
		})
	}

	monitor := printer.NewMonitor(scanner, printer.ScanTTL, log)
	var online int
	monitor.OnPrinterAdded(func(st printer.Status) {
		online++
		m.SetPrinters(online)
		server.Hub().BroadcastPrinterAdded(st)
		if dashboard != nil {
			dashboard.PrinterAdded(st)
		}
	})
	monitor.OnPrinterRemoved(func(path string) {
		online--
		m.SetPrinters(online)
		server.Hub().BroadcastPrinterRemoved(path)
		if dashboard != nil {
			dashboard.PrinterRemoved(path)
		}
	})
	monitor.Start(ctx)
	defer monitor.Stop()

	log.Info("label designer starting",
		zap.String("version", Version),
		zap.String("addr", cfg.Addr()),
		zap.String("model", cfg.Printer.Model),
		zap.String("printer", cfg.Printer.Device),
		zap.Int("fonts", len(resolver.List())),
	)

	if dashboard == nil {
		return server.Run(ctx, cfg.Addr())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx, cfg.Addr())
		cancel()
	}()

	if err := dashboard.Run(ctx); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	cancel()
	return <-serverErr
}
