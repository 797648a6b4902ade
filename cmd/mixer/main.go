// Command mixer runs one mix from the terminal and leaves the outputs on disk.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mixer/internal/adapters/storage/localfs"
	"mixer/internal/config"
	"mixer/internal/fetcher"
	"mixer/internal/mixer"
	"mixer/internal/pkg/logger"
	"mixer/internal/render"
	"mixer/internal/retry"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mixer",
		Short:         "Turn images and audio sources into short videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

type runOptions struct {
	archive string
	urls    string
	out     string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render one video per image and pack them into " + mixer.ArchiveName,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := runMix(ctx, cmd, opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.archive, "archive", "", "zip file with the images")
	f.StringVar(&opts.urls, "urls", "", "comma-separated audio source URLs")
	f.StringVar(&opts.out, "out", "out", "directory the videos and archive are written to")
	_ = cmd.MarkFlagRequired("archive")
	_ = cmd.MarkFlagRequired("urls")

	return cmd
}

func runMix(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	out, err := filepath.Abs(opts.out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	archive, err := os.Open(opts.archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	stdout := cmd.OutOrStdout()
	sp := localfs.New(out)

	mx := mixer.New(mixer.Deps{
		Fetcher: fetcher.New(&fetcher.YtDlp{
			Path:    cfg.Fetch.YtDlpPath,
			Quality: cfg.Fetch.AudioQuality,
			Log:     log,
		}, retry.Policy{
			MaxAttempts:  cfg.Fetch.MaxAttempts,
			Backoff:      retry.Exponential(cfg.Fetch.BackoffUnit),
			FinalBackoff: true,
		}, log),
		Renderer: render.New(cfg.Render.FFmpegPath, log),
		Storage:  sp,
		WorkDir:  cfg.WorkDir,
		Log:      log,
		Hooks:    progressHooks(stdout),
	})

	m, err := mx.Run(ctx, mixer.Request{
		ArchiveName: filepath.Base(opts.archive),
		Archive:     archive,
		Sources:     mixer.ParseSources(opts.urls),
	})
	if err != nil {
		return err
	}

	path, err := sp.Path(m.ArchiveKey)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Processed %d videos\n", len(m.Videos))
	fmt.Fprintln(stdout, path)
	return nil
}

// progressHooks prints one line per dropped source and per finished video.
func progressHooks(w io.Writer) mixer.Hooks {
	return mixer.Hooks{
		FetchFailed: func(f mixer.FetchFailure) {
			fmt.Fprintf(w, "Failed to download from URL: %s - %s\n", f.Source, f.Error)
		},
		VideoReady: func(v mixer.Video) {
			fmt.Fprintf(w, "Created video %s (%s)\n", mixer.VideoFileName(v.Index), v.Image)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
