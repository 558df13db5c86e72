package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
		{KindUnprocessable, http.StatusUnprocessableEntity},
		{KindUnknown, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := New(tt.kind, "x").HTTPStatus(); got != tt.want {
			t.Errorf("kind %d: expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}

func TestWrappedErrorKeepsCauseAndCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("list stages: %w", Wrap(KindInternal, "query failed", cause).WithOp("stage.List").WithCode("internal"))

	if !errors.Is(err, cause) {
		t.Fatal("expected the cause to stay in the chain")
	}
	if !Is(err, KindInternal) || GetCode(err) != "internal" {
		t.Fatalf("unexpected kind/code: %d %q", GetKind(err), GetCode(err))
	}
	if got := err.Error(); got != "list stages: stage.List: query failed: connection reset" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestPlainErrorsHaveNoKind(t *testing.T) {
	if GetKind(errors.New("boom")) != KindUnknown || GetCode(nil) != "" {
		t.Fatal("expected unknown kind and empty code")
	}
}
