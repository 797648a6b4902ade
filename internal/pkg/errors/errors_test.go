package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "code and message",
			err:      New(CodeEmptyInput, "no images"),
			contains: []string{"[EMPTY_INPUT]", "no images"},
		},
		{
			name:     "with op",
			err:      &Error{Code: CodeRender, Message: "ffmpeg exited", Op: "render.run"},
			contains: []string{"render.run: ", "RENDER_FAILED", "ffmpeg exited"},
		},
		{
			name:     "with cause",
			err:      &Error{Code: CodeInternal, Message: "wrapper", Err: fmt.Errorf("disk full")},
			contains: []string{"wrapper: disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			str := tt.err.Error()
			for _, c := range tt.contains {
				if !strings.Contains(str, c) {
					t.Errorf("expected %q in %q", c, str)
				}
			}
		})
	}
}

func TestWrap(t *testing.T) {
	original := fmt.Errorf("original error")
	wrapped := Wrap(original, "archive.pack", "pack failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected code=%s, got %s", CodeInternal, wrapped.Code)
	}
	if wrapped.Op != "archive.pack" {
		t.Errorf("expected op='archive.pack', got %s", wrapped.Op)
	}
	if errors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return original error")
	}
	if Wrap(nil, "op", "msg") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapPreservesCodeAndFields(t *testing.T) {
	inner := New(CodeFetchFailed, "gave up").WithField("source", "https://example.com/a")
	wrapped := Wrap(inner, "mixer.fetch", "fetch failed")

	if wrapped.Code != CodeFetchFailed {
		t.Errorf("expected code to be preserved, got %s", wrapped.Code)
	}
	if wrapped.Fields["source"] != "https://example.com/a" {
		t.Errorf("expected fields to be preserved, got %v", wrapped.Fields)
	}
}

func TestWrapDoesNotShareFields(t *testing.T) {
	inner := New(CodeRender, "ffmpeg exited").WithField("output", "output_0.mp4")
	outer := Wrap(inner, "mixer.render", "render failed").WithField("image", "a.png")

	if _, ok := inner.Fields["image"]; ok {
		t.Error("fields added to the wrapper must not leak into the wrapped error")
	}
	if outer.Fields["output"] != "output_0.mp4" || outer.Fields["image"] != "a.png" {
		t.Errorf("expected inherited and added fields, got %v", outer.Fields)
	}
}

func TestWrapWithCode(t *testing.T) {
	wrapped := WrapWithCode(fmt.Errorf("zip: not a valid zip file"), CodeArchiveInvalid, "archive.extract", "cannot read archive")
	if wrapped.Code != CodeArchiveInvalid {
		t.Errorf("expected code=%s, got %s", CodeArchiveInvalid, wrapped.Code)
	}
	if WrapWithCode(nil, CodeRender, "op", "msg") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeArchiveInvalid, 400},
		{CodeNotFound, 404},
		{CodeEmptyInput, 422},
		{CodeInternal, 500},
		{CodeRender, 500},
		{CodePackage, 500},
		{CodeFetchFailed, 502},
		{CodeUnavailable, 503},
		{CodeTimeout, 504},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "test").HTTPStatus(); got != tt.status {
				t.Errorf("expected status=%d, got %d", tt.status, got)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	nf := NotFound("mix", "01HZ")
	if nf.Code != CodeNotFound || nf.Fields["id"] != "01HZ" {
		t.Errorf("unexpected NotFound error: %+v", nf)
	}

	v := ValidationField("urls", "at least one URL is required")
	if v.Code != CodeValidation || v.Fields["field"] != "urls" {
		t.Errorf("unexpected validation error: %+v", v)
	}

	u := Unavailable("redis", fmt.Errorf("connection refused"))
	if u.Code != CodeUnavailable || u.Fields["service"] != "redis" {
		t.Errorf("unexpected unavailable error: %+v", u)
	}
}

func TestGetters(t *testing.T) {
	stdErr := fmt.Errorf("standard")

	if GetCode(stdErr) != CodeInternal {
		t.Errorf("expected %s for standard error", CodeInternal)
	}
	if GetHTTPStatus(stdErr) != 500 {
		t.Errorf("expected 500 for standard error")
	}
	if GetFields(stdErr) != nil {
		t.Error("expected nil fields for standard error")
	}

	wrapped := fmt.Errorf("outer: %w", New(CodeEmptyInput, "nothing to do"))
	if !IsCode(wrapped, CodeEmptyInput) {
		t.Error("expected IsCode to see through fmt wrapping")
	}
	if IsCode(nil, CodeInternal) {
		t.Error("IsCode(nil) should be false")
	}
}

func TestErrorIs(t *testing.T) {
	err1 := New(CodeRender, "first")
	err2 := New(CodeRender, "second")
	err3 := New(CodePackage, "third")

	if !errors.Is(err1, err2) {
		t.Error("expected errors with same code to match")
	}
	if errors.Is(err1, err3) {
		t.Error("expected errors with different codes not to match")
	}
}

func TestStackTrace(t *testing.T) {
	stack := New(CodeInternal, "boom").StackTrace()
	if !strings.Contains(stack, "errors_test.go:") {
		t.Errorf("expected caller in stack trace, got: %s", stack)
	}
}
