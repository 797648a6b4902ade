package mixer

import (
	"fmt"
	"io"
	"time"
)

// ArchiveName is the file name of the bundle handed back to the user.
const ArchiveName = "processed_videos.zip"

// Request is one mix: an image zip plus the sources to take audio from.
type Request struct {
	// ArchiveName is the uploaded file name, used for logging only.
	ArchiveName string
	Archive     io.Reader
	Sources     []string
}

// Video is one rendered and published video.
type Video struct {
	Index int `json:"index"`
	// Image is the frame's path inside the uploaded archive.
	Image string `json:"image"`
	// Source is the URL whose audio was used.
	Source    string `json:"source"`
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size"`
}

// FetchFailure records a source that was dropped from the audio pool.
type FetchFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Manifest is what one completed mix published.
type Manifest struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	Provider      string         `json:"provider"`
	Videos        []Video        `json:"videos"`
	ArchiveKey    string         `json:"archive_key"`
	ArchiveName   string         `json:"archive_name"`
	ArchiveSize   int64          `json:"archive_size"`
	FetchFailures []FetchFailure `json:"fetch_failures"`
}

// Hooks receive progress while a mix runs. Nil fields are skipped.
type Hooks struct {
	FetchFailed func(FetchFailure)
	VideoReady  func(Video)
}

func (h Hooks) fetchFailed(f FetchFailure) {
	if h.FetchFailed != nil {
		h.FetchFailed(f)
	}
}

func (h Hooks) videoReady(v Video) {
	if h.VideoReady != nil {
		h.VideoReady(v)
	}
}

// VideoFileName is the name of the i-th rendered video.
func VideoFileName(i int) string {
	return fmt.Sprintf("output_%d.mp4", i)
}

// VideoKey is the storage key of the i-th video of a mix.
func VideoKey(mixID string, i int) string {
	return fmt.Sprintf("mixes/%s/%s", mixID, VideoFileName(i))
}

// ArchiveKey is the storage key of a mix's bundle.
func ArchiveKey(mixID string) string {
	return fmt.Sprintf("mixes/%s/%s", mixID, ArchiveName)
}
