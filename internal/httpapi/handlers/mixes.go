package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/h2non/filetype"

	"mixer/internal/httpkit"
	"mixer/internal/mixer"
	"mixer/internal/pkg/errors"
	"mixer/internal/ports"
)

// multipartMemory is how much of a form is buffered in memory; the rest
// spills to temp files.
const multipartMemory = 32 << 20

type mixResponse struct {
	*mixer.Manifest
	ArchiveURL string   `json:"archive_url"`
	VideoURLs  []string `json:"video_urls"`
}

func (h *Handler) respond(m *mixer.Manifest) mixResponse {
	base := fmt.Sprintf("%s/mixes/%s", h.publicBaseURL, m.ID)
	urls := make([]string, len(m.Videos))
	for i, v := range m.Videos {
		urls[i] = fmt.Sprintf("%s/videos/%d", base, v.Index)
	}
	return mixResponse{Manifest: m, ArchiveURL: base + "/archive", VideoURLs: urls}
}

// PostMix runs a mix synchronously from a multipart form with an "archive"
// zip and a comma-separated "urls" field.
func (h *Handler) PostMix(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errors.New(errors.CodeValidation, "upload exceeds size limit").
				WithField("limit_bytes", tooBig.Limit)
		}
		return errors.WrapWithCode(err, errors.CodeValidation, "httpapi.post_mix", "invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("archive")
	if err != nil {
		return errors.ValidationField("archive", "archive is required")
	}
	defer file.Close()

	if err := requireZip(file); err != nil {
		return err
	}

	manifest, err := h.runner.Run(ctx, mixer.Request{
		ArchiveName: header.Filename,
		Archive:     file,
		Sources:     mixer.ParseSources(r.FormValue("urls")),
	})
	if err != nil {
		return err
	}

	if err := h.manifests.Save(ctx, manifest); err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusCreated, h.respond(manifest))
	return nil
}

// requireZip sniffs the upload and rewinds it.
func requireZip(file multipart.File) error {
	head := make([]byte, 262)
	n, _ := io.ReadFull(file, head)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "httpapi.sniff", "failed to rewind upload")
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind.MIME.Value != "application/zip" {
		return errors.New(errors.CodeArchiveInvalid, "archive must be a zip file").
			WithField("detected", kind.MIME.Value)
	}
	return nil
}

func (h *Handler) GetMix(w http.ResponseWriter, r *http.Request) error {
	m, err := h.manifests.Get(r.Context(), chi.URLParam(r, "mixId"))
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, h.respond(m))
	return nil
}

// GetArchive streams processed_videos.zip as an attachment.
func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	m, err := h.manifests.Get(ctx, chi.URLParam(r, "mixId"))
	if err != nil {
		return err
	}
	return h.stream(w, r, m.ArchiveKey, httpkit.Download{
		ContentType: "application/zip",
		Filename:    m.ArchiveName,
		Size:        m.ArchiveSize,
	})
}

// GetVideo streams one rendered video inline.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	m, err := h.manifests.Get(ctx, chi.URLParam(r, "mixId"))
	if err != nil {
		return err
	}

	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return errors.ValidationField("index", "index must be an integer")
	}
	if idx < 0 || idx >= len(m.Videos) {
		return errors.NotFound("video", raw)
	}

	v := m.Videos[idx]
	return h.stream(w, r, v.ObjectKey, httpkit.Download{
		ContentType: "video/mp4",
		Size:        v.Size,
	})
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, objectKey string, d httpkit.Download) error {
	obj, err := h.sp.GetObject(r.Context(), objectKey)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return errors.NotFound("object", objectKey)
		}
		return errors.Unavailable("storage", err)
	}
	defer obj.Body.Close()

	if d.Size <= 0 {
		d.Size = obj.Size
	}
	d.Body = obj.Body

	if err := httpkit.WriteDownload(w, d); err != nil {
		// headers are gone; all that is left is to log
		h.log.FromContext(r.Context()).Warn("download interrupted", "object_key", objectKey, "error", err.Error())
	}
	return nil
}
