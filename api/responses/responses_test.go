package responses

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestWriteSuccessWrapsData(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteSuccess(resp, map[string]any{"count": 3})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.Contains(resp.Body.String(), `"data":{"count":3}`) {
		t.Fatalf("expected data envelope, got %s", resp.Body.String())
	}
}

func TestWriteErrorPassesThroughSafeMessages(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	WriteError(context.Background(), testLogger(), resp, err)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "count must be positive") {
		t.Fatalf("expected typed message, got %s", resp.Body.String())
	}
}

func TestWriteErrorMasksInternalMessages(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: deadlock detected"), "credit failed")
	WriteError(context.Background(), testLogger(), resp, err)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	body := resp.Body.String()
	if strings.Contains(body, "deadlock") || strings.Contains(body, "credit failed") {
		t.Fatalf("internal detail leaked: %s", body)
	}
	if !strings.Contains(body, "INTERNAL_ERROR") {
		t.Fatalf("expected code in body, got %s", body)
	}
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	resp := httptest.NewRecorder()
	WriteError(context.Background(), testLogger(), resp, errors.New("boom"))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatalf("raw error leaked: %s", resp.Body.String())
	}
}

func TestWriteErrorIncludesAllowedDetails(t *testing.T) {
	resp := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid body").
		WithDetails(map[string]any{"field": "count"})
	WriteError(context.Background(), testLogger(), resp, err)

	if !strings.Contains(resp.Body.String(), `"field":"count"`) {
		t.Fatalf("expected details, got %s", resp.Body.String())
	}
}
