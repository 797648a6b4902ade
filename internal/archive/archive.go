// Package archive unpacks uploaded image bundles and packs rendered videos.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mixer/internal/pkg/errors"
)

// Extract unpacks every entry of the zip at archivePath into dest and returns
// the regular files found under dest, in lexical walk order.
func Extract(archivePath, dest string) ([]string, error) {
	const op = "archive.extract"

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeArchiveInvalid, op, "cannot read archive")
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, errors.Wrap(err, op, "create destination")
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, errors.Wrap(err, op, "resolve destination")
	}

	for _, zf := range zr.File {
		target, err := entryPath(root, zf.Name)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeArchiveInvalid, op, "unsafe archive entry").
				WithField("entry", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, errors.Wrap(err, op, "create directory")
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeArchiveInvalid, op, "cannot extract entry").
				WithField("entry", zf.Name)
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, op, "list extracted files")
	}
	return files, nil
}

// entryPath resolves name under root, rejecting absolute paths and entries
// that climb out of root.
func entryPath(root, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("absolute path %q", name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes destination", name)
	}
	return target, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Pack writes one zip at out holding every file in files, stored flat under
// its base name. On any failure the partial archive is removed.
func Pack(files []string, out string) (err error) {
	const op = "archive.pack"

	f, err := os.Create(out)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodePackage, op, "create archive")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	zw := zip.NewWriter(f)
	for _, path := range files {
		if err = addFile(zw, path); err != nil {
			zw.Close()
			f.Close()
			return errors.WrapWithCode(err, errors.CodePackage, op, "add file to archive").
				WithField("file", filepath.Base(path))
		}
	}
	if err = zw.Close(); err != nil {
		f.Close()
		return errors.WrapWithCode(err, errors.CodePackage, op, "finalize archive")
	}
	if err = f.Close(); err != nil {
		return errors.WrapWithCode(err, errors.CodePackage, op, "close archive")
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
