// Package mixer runs the whole pipeline for one request: extract images,
// fetch audio, render one video per image, package and publish.
package mixer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"mixer/internal/archive"
	"mixer/internal/pkg/errors"
	"mixer/internal/pkg/logger"
	"mixer/internal/ports"
	"mixer/internal/render"
	"mixer/internal/workdir"
)

// AudioFetcher resolves a source URL to prefix.mp3.
type AudioFetcher interface {
	Fetch(ctx context.Context, source, prefix string) (string, error)
}

// VideoRenderer encodes a frame sequence and a track into out.
type VideoRenderer interface {
	Render(ctx context.Context, frames []string, audio, out string) error
}

type Deps struct {
	Fetcher  AudioFetcher
	Renderer VideoRenderer
	Storage  ports.StorageProvider
	// WorkDir is the parent of per-mix working directories.
	WorkDir string
	Picker  Picker
	Hooks   Hooks
	Log     *logger.Logger

	// Now and NewID default to time.Now and ULIDs.
	Now   func() time.Time
	NewID func() string
}

type Mixer struct {
	fetcher  AudioFetcher
	renderer VideoRenderer
	storage  ports.StorageProvider
	workDir  string
	picker   Picker
	hooks    Hooks
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func New(d Deps) *Mixer {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	m := &Mixer{
		fetcher:  d.Fetcher,
		renderer: d.Renderer,
		storage:  d.Storage,
		workDir:  d.WorkDir,
		picker:   d.Picker,
		hooks:    d.Hooks,
		log:      log.WithComponent("mixer"),
		now:      d.Now,
		newID:    d.NewID,
	}
	if m.picker == nil {
		m.picker = globalRand{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return ulid.Make().String() }
	}
	return m
}

// rendered is a video on local disk before packaging.
type rendered struct {
	Video
	path string
}

// Run executes the pipeline. Per-source fetch failures are recorded in the
// manifest; an empty image set or audio pool, any render failure and any
// packaging or publishing failure abort the mix. The working directory is
// removed on every path.
func (m *Mixer) Run(ctx context.Context, req Request) (*Manifest, error) {
	id := m.newID()
	ctx = logger.ContextWithMixID(ctx, id)
	log := m.log.FromContext(ctx)
	start := m.now()

	log.Info("mix started", "sources", len(req.Sources), "archive", req.ArchiveName)

	// 1. Working directory
	dir, err := workdir.New(m.workDir, "mix-"+id)
	if err != nil {
		return nil, m.failMix(ctx, errors.Wrap(err, "mixer.workdir", "failed to create working directory"))
	}
	defer func() {
		if err := dir.Close(); err != nil {
			log.Warn("working directory cleanup failed", "dir", dir.Root(), "error", err.Error())
		}
	}()

	// 2. Images
	images, err := m.stageImages(ctx, dir, req)
	if err != nil {
		return nil, m.failMix(ctx, err)
	}
	if len(images) == 0 {
		return nil, m.failMix(ctx, emptyInput(0, len(req.Sources)))
	}

	// 3. Audio pool
	pool, failures, err := m.fetchPool(ctx, dir, req.Sources)
	if err != nil {
		return nil, m.failMix(ctx, errors.Wrap(err, "mixer.fetch", "failed to fetch audio"))
	}
	if len(pool) == 0 {
		return nil, m.failMix(ctx, emptyInput(len(images), len(req.Sources)).
			WithField("fetch_failures", len(failures)))
	}

	// 4. One video per image
	videosDir, err := dir.Mkdir("videos")
	if err != nil {
		return nil, m.failMix(ctx, errors.Wrap(err, "mixer.render", "failed to create videos directory"))
	}

	videos := make([]rendered, 0, len(images))
	for i, img := range images {
		t := pool[m.picker.IntN(len(pool))]
		out := filepath.Join(videosDir, VideoFileName(i))

		frames := lo.Times(render.Length, func(int) string { return img.path })
		if err := m.renderer.Render(ctx, frames, t.path, out); err != nil {
			return nil, m.failMix(ctx, errors.Wrap(err, "mixer.render", "render failed").
				WithField("image", img.name).
				WithField("source", t.source))
		}

		pub, err := m.publish(ctx, out, VideoKey(id, i), "video/mp4")
		if err != nil {
			return nil, m.failMix(ctx, err)
		}

		v := Video{Index: i, Image: img.name, Source: t.source, ObjectKey: pub.ObjectKey, Size: pub.Size}
		videos = append(videos, rendered{Video: v, path: out})
		log.Info("video ready", "index", i, "image", img.name, "source", t.source)
		m.hooks.videoReady(v)
	}

	// 5. Package and publish the bundle
	bundle := dir.Path(ArchiveName)
	if err := archive.Pack(lo.Map(videos, func(v rendered, _ int) string { return v.path }), bundle); err != nil {
		return nil, m.failMix(ctx, errors.Wrap(err, "mixer.package", "failed to package videos"))
	}
	pub, err := m.publish(ctx, bundle, ArchiveKey(id), "application/zip")
	if err != nil {
		return nil, m.failMix(ctx, err)
	}

	manifest := &Manifest{
		ID:            id,
		CreatedAt:     m.now().UTC(),
		Provider:      m.storage.Provider(),
		Videos:        lo.Map(videos, func(v rendered, _ int) Video { return v.Video }),
		ArchiveKey:    pub.ObjectKey,
		ArchiveName:   ArchiveName,
		ArchiveSize:   pub.Size,
		FetchFailures: failures,
	}
	if manifest.FetchFailures == nil {
		manifest.FetchFailures = []FetchFailure{}
	}

	log.Info("mix completed",
		"videos", len(manifest.Videos),
		"fetch_failures", len(failures),
		"duration_ms", m.now().Sub(start).Milliseconds(),
	)
	return manifest, nil
}

func emptyInput(images, sources int) *errors.Error {
	return errors.New(errors.CodeEmptyInput, "No images or audio files found to process.").
		WithField("images", images).
		WithField("sources", sources)
}

func (m *Mixer) failMix(ctx context.Context, cause error) error {
	log := m.log.FromContext(ctx)

	var mixErr *errors.Error
	if errors.As(cause, &mixErr) {
		log.Error("mix failed",
			"code", string(mixErr.Code),
			"op", mixErr.Op,
			"message", mixErr.Message,
			"error", cause.Error(),
		)
	} else {
		log.Error("mix failed", "error", cause.Error())
	}
	return cause
}
