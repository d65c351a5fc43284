// tinyos boots the kernel and attaches the visible terminal to the host
// terminal.
//
// Keys typed on the host are translated to scancodes. Esc followed by 1, 2
// or 3 switches the visible terminal; Ctrl+] powers the machine off.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"tinyos/pkg/config"
	"tinyos/pkg/graphics"
	"tinyos/pkg/process"
	"tinyos/pkg/programs"
	"tinyos/pkg/tracing"
	"tinyos/pkg/vfs"
	"tinyos/pkg/vfs/diskfs"
	"tinyos/pkg/vfs/imagefs"
)

const version = "0.1.0"

func main() {
	configURL := flag.String("config", "", "configuration URL (file://, mem://, ...)")
	imageURL := flag.String("image", "", "filesystem image URL, overrides filesystem.url")
	dir := flag.String("dir", "", "build the filesystem from this directory, overrides filesystem.directory")
	snapshot := flag.String("snapshot", "", "write a PNG of the visible terminal here on exit")
	flag.Parse()

	if err := run(*configURL, *imageURL, *dir, *snapshot); err != nil {
		fmt.Fprintf(os.Stderr, "tinyos: %v\n", err)
		os.Exit(1)
	}
}

func run(configURL, imageURL, dir, snapshot string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afs.New()
	cfg := config.DefaultConfig()
	if configURL != "" {
		var err error
		if cfg, err = config.Load(ctx, fs, configURL); err != nil {
			return err
		}
	}
	if imageURL != "" {
		cfg.Filesystem.URL = imageURL
	}
	if dir != "" {
		cfg.Filesystem.Directory = dir
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if cfg.Trace.Enabled {
		if err := tracing.Init("tinyos", version, cfg.Trace.Output); err != nil {
			return fmt.Errorf("failed to initialise tracing: %w", err)
		}
	}

	reg := programs.Default()
	store, err := openStore(ctx, fs, cfg.Filesystem, reg)
	if err != nil {
		return err
	}

	k := process.New(store, reg,
		process.WithLogger(logger),
		process.WithTerminals(cfg.Terminals),
		process.WithShell(cfg.Shell),
		process.WithTimerHz(cfg.Timer.Hz),
		process.WithRTCHz(cfg.RTC.Hz),
	)
	if err := k.Boot(ctx); err != nil {
		return err
	}
	defer k.Shutdown()

	con, err := attach(k)
	if err != nil {
		return err
	}
	defer con.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		con.readKeys(ctx)
		cancel()
	}()
	con.refresh(ctx, 50*time.Millisecond)

	if snapshot != "" {
		return saveSnapshot(context.Background(), fs, k, snapshot)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// openStore picks the boot image: a host directory, an image URL, or the
// built-in programs alone.
func openStore(ctx context.Context, fs afs.Service, cfg config.FilesystemConfig, reg *programs.Registry) (vfs.Store, error) {
	switch {
	case cfg.Directory != "":
		extra := reg.Images()
		for _, name := range []string{"frame0.txt", "frame1.txt"} {
			if data, ok := programs.Asset(name); ok {
				extra[name] = data
			}
		}
		data, err := diskfs.FromDirectory(ctx, fs, cfg.Directory, extra)
		if err != nil {
			return nil, err
		}
		return imagefs.Parse(data)
	case cfg.URL != "":
		return diskfs.Load(ctx, fs, cfg.URL)
	}
	data, err := reg.Install(imagefs.NewBuilder()).Build()
	if err != nil {
		return nil, err
	}
	return imagefs.Parse(data)
}

func saveSnapshot(ctx context.Context, fs afs.Service, k *process.Kernel, URL string) error {
	var data []byte
	var err error
	k.Inspect(func() {
		data, err = graphics.PNG(k.Console().Terminal(k.Console().Visible()).Screen())
	})
	if err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload snapshot %v: %w", URL, err)
	}
	return nil
}
