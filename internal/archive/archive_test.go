package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mixer/internal/pkg/errors"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestExtractListsNestedFiles(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "images.zip")
	writeZip(t, zipPath, map[string]string{
		"a.png":         "png-a",
		"nested/b.jpg":  "jpg-b",
		"nested/deep/c": "no extension",
		"emptydir/":     "",
	})

	dest := filepath.Join(dir, "images")
	files, err := Extract(zipPath, dest)
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join(dest, "a.png"),
		filepath.Join(dest, "nested", "b.jpg"),
		filepath.Join(dest, "nested", "deep", "c"),
	}, files)

	body, err := os.ReadFile(filepath.Join(dest, "nested", "b.jpg"))
	require.NoError(t, err)
	require.Equal(t, "jpg-b", string(body))
	require.DirExists(t, filepath.Join(dest, "emptydir"))
}

func TestExtractEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "empty.zip")
	writeZip(t, zipPath, nil)

	files, err := Extract(zipPath, filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestExtractCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("this is not a zip"), 0o644))

	files, err := Extract(zipPath, filepath.Join(dir, "out"))
	require.Error(t, err)
	require.Nil(t, files)
	require.True(t, errors.IsCode(err, errors.CodeArchiveInvalid))
}

func TestExtractMissingArchive(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	require.True(t, errors.IsCode(err, errors.CodeArchiveInvalid))
}

func TestExtractRejectsZipSlip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../../escaped.txt": "gotcha"})

	dest := filepath.Join(dir, "a", "b")
	_, err := Extract(zipPath, dest)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodeArchiveInvalid))
	require.NoFileExists(t, filepath.Join(dir, "escaped.txt"))
}

func TestEntryPath(t *testing.T) {
	root := filepath.FromSlash("/work/images")

	got, err := entryPath(root, "x/y.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "x", "y.png"), got)

	for _, bad := range []string{"../y.png", "/etc/passwd", `..\..\y.png`, "x/../../y.png"} {
		_, err := entryPath(root, bad)
		require.Error(t, err, bad)
	}
}

func TestPackFlattensByBaseName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "videos", "sub"), 0o755))
	a := filepath.Join(dir, "videos", "output_0.mp4")
	b := filepath.Join(dir, "videos", "sub", "output_1.mp4")
	require.NoError(t, os.WriteFile(a, []byte("video-0"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("video-1"), 0o644))

	out := filepath.Join(dir, "processed_videos.zip")
	require.NoError(t, Pack([]string{a, b}, out))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"output_0.mp4", "output_1.mp4"}, names)
}

func TestPackUnreadableInputRemovesArchive(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "output_0.mp4")
	require.NoError(t, os.WriteFile(good, []byte("video"), 0o644))

	out := filepath.Join(dir, "processed_videos.zip")
	err := Pack([]string{good, filepath.Join(dir, "missing.mp4")}, out)
	require.Error(t, err)
	require.True(t, errors.IsCode(err, errors.CodePackage))
	require.NoFileExists(t, out)
}

func TestPackRoundTripsThroughExtract(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "output_0.mp4")
	require.NoError(t, os.WriteFile(src, []byte("frames"), 0o644))

	out := filepath.Join(dir, "bundle.zip")
	require.NoError(t, Pack([]string{src}, out))

	files, err := Extract(out, filepath.Join(dir, "unpacked"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.Equal(t, "frames", string(body))
}
