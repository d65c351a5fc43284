package diskfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"tinyos/pkg/vfs"
)

func TestFromDirectoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame0.txt"), []byte("><>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rtc"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "skipped"), 0o755))

	fs := afs.New()
	raw, err := FromDirectory(ctx, fs, dir, map[string][]byte{"hello": []byte("\x7fELF")})
	require.NoError(t, err)

	imageURL := filepath.Join(t.TempDir(), "fs.img")
	require.NoError(t, Save(ctx, fs, imageURL, raw))

	img, err := Load(ctx, fs, imageURL)
	require.NoError(t, err)

	names := make([]string, 0, img.Len())
	for i := 0; i < img.Len(); i++ {
		d, err := img.Entry(i)
		require.NoError(t, err)
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{".", "frame0.txt", "rtc", "hello"}, names)

	d, err := img.Lookup("rtc")
	require.NoError(t, err)
	assert.Equal(t, vfs.TypeRTC, d.Type)

	d, err = img.Lookup("frame0.txt")
	require.NoError(t, err)
	data, err := vfs.ReadFile(img, d)
	require.NoError(t, err)
	assert.Equal(t, "><>", string(data))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), afs.New(), filepath.Join(t.TempDir(), "missing.img"))
	assert.Error(t, err)
}
