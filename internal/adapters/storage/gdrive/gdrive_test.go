package gdrive

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"mixer/internal/ports"
)

func TestMapErr(t *testing.T) {
	if mapErr(nil, "x") != nil {
		t.Error("expected nil for nil error")
	}

	notFound := &googleapi.Error{Code: http.StatusNotFound, Message: "File not found"}
	if err := mapErr(fmt.Errorf("download: %w", notFound), "abc"); !errors.Is(err, ports.ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}

	forbidden := &googleapi.Error{Code: http.StatusForbidden}
	err := mapErr(forbidden, "abc")
	if errors.Is(err, ports.ErrObjectNotFound) {
		t.Error("403 must not map to not found")
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		t.Error("expected original googleapi error to stay wrapped")
	}
}
