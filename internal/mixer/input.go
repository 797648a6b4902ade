package mixer

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"mixer/internal/archive"
	"mixer/internal/pkg/errors"
	"mixer/internal/workdir"
)

// image is an extracted frame.
type image struct {
	path string
	// name is the slash-separated path inside the upload.
	name string
}

// stageImages copies the upload into dir and extracts it under images/.
func (m *Mixer) stageImages(ctx context.Context, dir *workdir.Dir, req Request) ([]image, error) {
	uploadPath := dir.Path("upload.zip")
	if err := copyToFile(uploadPath, req.Archive); err != nil {
		return nil, errors.Wrap(err, "mixer.stage", "failed to store upload")
	}

	imagesDir, err := dir.Mkdir("images")
	if err != nil {
		return nil, errors.Wrap(err, "mixer.stage", "failed to create images directory")
	}

	files, err := archive.Extract(uploadPath, imagesDir)
	if err != nil {
		return nil, errors.Wrap(err, "mixer.extract", "failed to extract images")
	}

	// the upload is no longer needed once extracted
	_ = os.Remove(uploadPath)

	images := make([]image, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(imagesDir, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		images = append(images, image{path: f, name: filepath.ToSlash(rel)})
	}

	m.log.FromContext(ctx).Debug("images extracted", "count", len(images), "archive", req.ArchiveName)
	return images, nil
}

func copyToFile(path string, r io.Reader) error {
	if r == nil {
		return errors.ValidationField("archive", "archive is required")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
