package httpkit

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	_ = json.NewEncoder(w).Encode(env)
}

// Download describes a binary body streamed back to the client.
type Download struct {
	ContentType string
	// Filename, when set, makes the response an attachment.
	Filename string
	// Size is sent as Content-Length when positive.
	Size int64
	Body io.Reader
}

// WriteDownload streams d with status 200. The returned error is the copy
// error; headers are already sent by then.
func WriteDownload(w http.ResponseWriter, d Download) error {
	ct := d.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if d.Filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	}
	if d.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, err := io.Copy(w, d.Body)
	return err
}
