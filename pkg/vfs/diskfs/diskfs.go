// Package diskfs moves filesystem images between afs storage and the
// kernel. Any afs URL works: file://, mem:// or a cloud scheme.
package diskfs

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"tinyos/pkg/vfs/imagefs"
)

// DeviceName is the file name that becomes the RTC device entry when an
// image is built from a directory.
const DeviceName = "rtc"

// Load downloads the image at URL and parses it.
func Load(ctx context.Context, fs afs.Service, URL string) (*imagefs.Image, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image %v: %w", URL, err)
	}
	img, err := imagefs.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image %v: %w", URL, err)
	}
	return img, nil
}

// FromDirectory builds an image from the regular files directly under URL,
// in name order. A file called DeviceName becomes the RTC entry; extra
// holds additional files, typically generated program executables, added
// after the directory contents.
func FromDirectory(ctx context.Context, fs afs.Service, URL string, extra map[string][]byte) ([]byte, error) {
	objects, err := fs.List(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", URL, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name() < objects[j].Name() })
	b := imagefs.NewBuilder()
	seen := make(map[string]bool)
	for _, object := range objects {
		if object.IsDir() || strings.HasPrefix(object.Name(), ".") {
			continue
		}
		name := object.Name()
		seen[name] = true
		if name == DeviceName {
			b.AddDevice(name)
			continue
		}
		data, err := fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", object.URL(), err)
		}
		b.Add(name, data)
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b.Add(name, extra[name])
	}
	return b.Build()
}

// Save uploads image to URL.
func Save(ctx context.Context, fs afs.Service, URL string, image []byte) error {
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(image)); err != nil {
		return fmt.Errorf("failed to upload image %v: %w", URL, err)
	}
	return nil
}
