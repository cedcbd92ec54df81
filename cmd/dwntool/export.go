package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/dawn-toolbox/internal/config"
	"github.com/Faultbox/dawn-toolbox/internal/exporter"
	"github.com/Faultbox/dawn-toolbox/internal/logger"
	"github.com/Faultbox/dawn-toolbox/internal/source"
	"github.com/Faultbox/dawn-toolbox/pkg/grf"
)

// session is the state shared by export and watch: the loaded config, an
// exporter and any opened archives.
type session struct {
	cfg      *config.Config
	exporter *exporter.Exporter
	sources  source.Options
}

func newSession(flags *config.Flags) (*session, error) {
	cfg, err := config.Load("", flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}

	archives, err := grf.OpenSet(cfg.Source.GRFPaths)
	if err != nil {
		return nil, err
	}
	for _, a := range archives {
		logger.Debug("archive opened", zap.String("path", a.Path()))
	}

	return &session{
		cfg:      cfg,
		exporter: exporter.New(cfg.Export, nil, logger.Named("export")),
		sources:  source.Options{Archives: archives, SmoothNormals: cfg.Source.SmoothNormals},
	}, nil
}

func (s *session) Close() {
	s.sources.Archives.Close()
	logger.Sync()
}

func (s *session) export(input string, stdout io.Writer) error {
	res, err := s.exporter.ExportFile(input, s.sources)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s -> %s (%d objects, %d bytes)\n", input, res.Output, res.Objects, res.Bytes)
	return nil
}

func cmdExport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return usageError("dwntool export [flags] <input>...")
	}
	if fs.NArg() < 1 {
		return usageError("dwntool export [flags] <input>...")
	}

	s, err := newSession(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	failed := 0
	for _, input := range fs.Args() {
		if err := s.export(input, stdout); err != nil {
			logger.Error("export failed", zap.String("input", input), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, fs.NArg())
	}
	return nil
}

func cmdWatch(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	debounce := fs.Duration("debounce", 200*time.Millisecond, "Wait this long after the last change")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return usageError("dwntool watch [flags] <input>")
	}
	if !source.Supported(fs.Arg(0)) {
		return fmt.Errorf("%w: %s (want one of %v)", source.ErrUnknownFormat, fs.Arg(0), source.Extensions)
	}

	s, err := newSession(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.watch(ctx, fs.Arg(0), *debounce, stdout)
}

// watch exports input once and then again after every change, until ctx is
// done. The directory is watched rather than the file because editors often
// save by replacing it.
func (s *session) watch(ctx context.Context, input string, debounce time.Duration, stdout io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	exportOnce := func() {
		if err := s.export(input, stdout); err != nil {
			logger.Error("export failed", zap.String("input", input), zap.Error(err))
		}
	}
	exportOnce()
	logger.Info("watching for changes", zap.String("input", input))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			logger.Debug("input changed", zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			exportOnce()
		}
	}
}
