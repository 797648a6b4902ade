package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"mixer/internal/pkg/logger"
)

// YtDlp downloads the best audio stream with yt-dlp and transcodes it to mp3.
type YtDlp struct {
	// Path is the yt-dlp executable; empty means resolve from PATH.
	Path string
	// Quality is passed as --audio-quality, e.g. "192K".
	Quality string
	Log     *logger.Logger
}

// Command builds the yt-dlp invocation for one download.
func (y *YtDlp) Command(prefix string) *ytdlp.Command {
	quality := y.Quality
	if quality == "" {
		quality = "192K"
	}

	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(quality).
		NoPlaylist().
		ForceOverwrites().
		Output(prefix + ".%(ext)s")

	if y.Path != "" {
		cmd.SetExecutable(y.Path)
	}
	return cmd
}

func (y *YtDlp) Download(ctx context.Context, source, prefix string) error {
	res, err := y.Command(prefix).Run(ctx, source)
	if y.Log != nil && res != nil && res.Stderr != "" {
		lw := logger.NewLineWriter(y.Log.FromContext(ctx).WithComponent("yt-dlp"), slog.LevelDebug, 0)
		_, _ = lw.Write([]byte(res.Stderr))
		lw.Flush()
	}
	if err != nil {
		if res != nil && res.Stderr != "" {
			return fmt.Errorf("yt-dlp exited with code %d: %s", res.ExitCode, lastLine(res.Stderr))
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
