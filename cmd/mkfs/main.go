// mkfs builds a filesystem image from a directory and the built-in
// programs.
//
//	mkfs -dir file:///path/to/fsdir -out file:///path/to/filesys.img
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/viant/afs"

	"tinyos/pkg/programs"
	"tinyos/pkg/vfs/diskfs"
	"tinyos/pkg/vfs/imagefs"
)

func main() {
	dir := flag.String("dir", "", "directory URL with the data files")
	out := flag.String("out", "filesys.img", "output image URL")
	noPrograms := flag.Bool("no-programs", false, "do not add the built-in programs")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(context.Background(), *dir, *out, !*noPrograms, logger); err != nil {
		fmt.Fprintf(os.Stderr, "mkfs: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dir, out string, withPrograms bool, logger *slog.Logger) error {
	fs := afs.New()
	reg := programs.Default()

	var (
		data []byte
		err  error
	)
	if dir == "" {
		b := imagefs.NewBuilder()
		if withPrograms {
			reg.Install(b)
		}
		data, err = b.Build()
	} else {
		extra := map[string][]byte{}
		if withPrograms {
			extra = reg.Images()
		}
		data, err = diskfs.FromDirectory(ctx, fs, dir, extra)
	}
	if err != nil {
		return err
	}

	img, err := imagefs.Parse(data)
	if err != nil {
		return err
	}
	if err := diskfs.Save(ctx, fs, out, data); err != nil {
		return err
	}
	logger.Info("image written", "url", out, "entries", img.Len(), "bytes", len(data))
	return nil
}
