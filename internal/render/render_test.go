package render

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mixer/internal/pkg/errors"
	"mixer/internal/pkg/logger"
)

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		frames int
		audio  time.Duration
	}{
		{30, 30 * time.Second},
		{10, 10 * time.Second},
		{1, time.Second},
		{45, 30 * time.Second},
	}
	for _, tt := range tests {
		p := NewPlan(repeat("img.png", tt.frames))
		require.Equal(t, tt.frames, p.Frames)
		require.Equal(t, tt.audio, p.Audio)
		require.Equal(t, 30*time.Second, p.Total)
	}
}

func TestArgs(t *testing.T) {
	args := Args("/w/out.mp4.frames.txt", "/w/audio_0.mp3", "/w/output_0.mp4", NewPlan(repeat("x", 30)))
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f concat",
		"-safe 0",
		"-i /w/out.mp4.frames.txt",
		"-t 30 -i /w/audio_0.mp3",
		"-c:v libx264",
		"-c:a aac",
		"-pix_fmt yuv420p",
		"tpad=",
		"stop_mode=clone",
		"stop_duration=30",
		"scale=",
	} {
		require.Contains(t, joined, want)
	}
	require.Contains(t, args, "/w/output_0.mp4")
	require.Contains(t, args, "-y")
}

func TestArgsShortSequenceSlicesAudio(t *testing.T) {
	args := Args("list.txt", "a.mp3", "o.mp4", NewPlan(repeat("x", 12)))
	i := slices.Index(args, "a.mp3")
	require.Greater(t, i, 2)
	require.Equal(t, []string{"-t", "12", "-i"}, args[i-3:i])
}

func TestWriteFrameList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, writeFrameList(path, []string{"/img/a.png", "/img/it's.png"}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ffconcat version 1.0\n"+
		"file '/img/a.png'\nduration 1\n"+
		"file '/img/it'\\''s.png'\nduration 1\n"+
		"file '/img/it'\\''s.png'\n", string(body))
}

func TestRenderNoFrames(t *testing.T) {
	r := New("ffmpeg", logger.Discard())
	err := r.Render(context.Background(), nil, "a.mp3", filepath.Join(t.TempDir(), "o.mp4"))
	require.True(t, errors.IsCode(err, errors.CodeRender))
}

func TestRenderMissingBinary(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "no-such-ffmpeg"), logger.Discard())

	err := r.Render(context.Background(), []string{filepath.Join(dir, "a.png")}, "a.mp3", filepath.Join(dir, "o.mp4"))
	require.True(t, errors.IsCode(err, errors.CodeRender))
	require.NoFileExists(t, filepath.Join(dir, "o.mp4.frames.txt"))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: 80, B: uint8(y * 4), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRenderProducesFixedLengthVideo(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not on PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not on PATH")
	}

	dir := t.TempDir()
	img := filepath.Join(dir, "odd.png")
	writePNG(t, img, 33, 21)

	audio := filepath.Join(dir, "tone.mp3")
	gen := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", "sine=frequency=440:duration=5", audio)
	require.NoError(t, gen.Run())

	out := filepath.Join(dir, "output_0.mp4")
	r := New("ffmpeg", logger.Discard())
	require.NoError(t, r.Render(context.Background(), repeat(img, Length), audio, out))

	d, err := Probe(out)
	require.NoError(t, err)
	require.InDelta(t, 30.0, d.Seconds(), 1.0)
}

// stubFFmpeg writes a script that creates the .mp4 path it is given.
func stubFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\nfor a; do case $a in *.mp4) out=$a;; esac; done\n: > \"$out\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRenderChecksOutputLength(t *testing.T) {
	tests := []struct {
		name    string
		probe   func(string) (time.Duration, error)
		wantErr bool
	}{
		{"exact", func(string) (time.Duration, error) { return 30 * time.Second, nil }, false},
		{"aac padding", func(string) (time.Duration, error) { return 30*time.Second + 23*time.Millisecond, nil }, false},
		{"too short", func(string) (time.Duration, error) { return 12 * time.Second, nil }, true},
		{"too long", func(string) (time.Duration, error) { return 45 * time.Second, nil }, true},
		{"probe fails", func(string) (time.Duration, error) { return 0, os.ErrNotExist }, true},
	}

	bin := stubFFmpeg(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "output_0.mp4")

			var probed string
			r := New(bin, logger.Discard())
			r.Probe = func(path string) (time.Duration, error) {
				probed = path
				return tt.probe(path)
			}

			err := r.Render(context.Background(), repeat(filepath.Join(dir, "a.png"), Length), "a.mp3", out)
			require.Equal(t, out, probed)
			if !tt.wantErr {
				require.NoError(t, err)
				require.FileExists(t, out)
				return
			}
			require.True(t, errors.IsCode(err, errors.CodeRender), "got %v", err)
			require.NoFileExists(t, out)
		})
	}
}

func TestRenderWithoutProbeSkipsCheck(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output_0.mp4")

	r := &Renderer{FFmpegPath: stubFFmpeg(t), Log: logger.Discard()}
	require.NoError(t, r.Render(context.Background(), []string{filepath.Join(dir, "a.png")}, "a.mp3", out))
	require.FileExists(t, out)
}
