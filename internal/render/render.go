// Package render encodes an image sequence and an audio track into a
// fixed-length MP4 with ffmpeg.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"mixer/internal/pkg/errors"
	"mixer/internal/pkg/logger"
)

const (
	// Length is the output length in units.
	Length = 30
	// Unit is the playback time of one frame.
	Unit = time.Second

	// lengthTolerance absorbs container and AAC priming overhead.
	lengthTolerance = time.Second
)

// Plan is the timing derived from a frame sequence.
type Plan struct {
	Frames int
	// Audio is the slice taken from the start of the track.
	Audio time.Duration
	Total time.Duration
}

// NewPlan computes timing for frames: one unit per frame, audio capped at
// Length units, output always Length units.
func NewPlan(frames []string) Plan {
	return Plan{
		Frames: len(frames),
		Audio:  time.Duration(min(Length, len(frames))) * Unit,
		Total:  Length * Unit,
	}
}

// Renderer runs ffmpeg.
type Renderer struct {
	// FFmpegPath is the ffmpeg executable; empty means "ffmpeg".
	FFmpegPath string
	// Probe measures the rendered file; nil skips the length check.
	Probe func(path string) (time.Duration, error)
	Log   *logger.Logger
}

func New(ffmpegPath string, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Renderer{FFmpegPath: ffmpegPath, Probe: Probe, Log: log.WithComponent("render")}
}

// Args returns the ffmpeg argument vector, without the binary, that encodes
// the concat list at framesList with audio into out.
func Args(framesList, audio, out string, plan Plan) []string {
	video := ffmpeg.Input(framesList, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Video().
		Filter("scale", ffmpeg.Args{}, ffmpeg.KwArgs{"w": "trunc(iw/2)*2", "h": "trunc(ih/2)*2"}).
		Filter("tpad", ffmpeg.Args{}, ffmpeg.KwArgs{"stop_mode": "clone", "stop_duration": seconds(plan.Total)})

	sound := ffmpeg.Input(audio, ffmpeg.KwArgs{"t": seconds(plan.Audio)}).Audio()

	return ffmpeg.Output([]*ffmpeg.Stream{video, sound}, out, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"c:a":      "aac",
		"pix_fmt":  "yuv420p",
		"r":        "1",
		"t":        seconds(plan.Total),
		"movflags": "+faststart",
	}).
		OverWriteOutput().
		GetArgs()
}

// Render encodes frames (one per unit) with audio into out.
func (r *Renderer) Render(ctx context.Context, frames []string, audio, out string) error {
	const op = "render.run"

	if len(frames) == 0 {
		return errors.New(errors.CodeRender, "no frames to render").WithField("output", out)
	}

	listPath := out + ".frames.txt"
	if err := writeFrameList(listPath, frames); err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, op, "write frame list")
	}
	defer os.Remove(listPath)

	plan := NewPlan(frames)
	args := Args(listPath, audio, out, plan)

	bin := r.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	log := r.Log.FromContext(ctx)
	stderr := logger.NewLineWriter(log.WithComponent("ffmpeg"), slog.LevelDebug, 10)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = stderr

	start := time.Now()
	log.Debug("ffmpeg starting", "output", out, "frames", plan.Frames, "audio_s", plan.Audio.Seconds())
	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		_ = os.Remove(out)
		return errors.WrapWithCode(err, errors.CodeRender, op, "ffmpeg failed").
			WithField("output", out).
			WithField("stderr", strings.Join(stderr.Tail(), "\n"))
	}

	if err := r.checkLength(out, plan.Total); err != nil {
		_ = os.Remove(out)
		return err
	}

	log.Info("video rendered", "output", out, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// checkLength fails when the encoded file is not want long.
func (r *Renderer) checkLength(out string, want time.Duration) error {
	if r.Probe == nil {
		return nil
	}
	got, err := r.Probe(out)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, "render.verify", "failed to measure rendered video").
			WithField("output", out)
	}
	if diff := got - want; diff > lengthTolerance || diff < -lengthTolerance {
		return errors.Newf(errors.CodeRender, "rendered video is %s long, want %s", got, want).
			WithField("output", out)
	}
	return nil
}

// writeFrameList writes an ffmpeg concat demuxer script holding each frame for
// one unit. The last frame is listed twice so its duration is honored.
func writeFrameList(path string, frames []string) error {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, f := range frames {
		fmt.Fprintf(&b, "file %s\nduration %s\n", quote(f), seconds(Unit))
	}
	fmt.Fprintf(&b, "file %s\n", quote(frames[len(frames)-1]))
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Probe returns the container duration of a media file via ffprobe.
func Probe(path string) (time.Duration, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var info struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	secs, err := strconv.ParseFloat(info.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", info.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
