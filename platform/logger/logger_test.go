package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithContextAddsCompanyID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	ctx := context.WithValue(context.Background(), CompanyIDKey, "c-1")
	ctx = context.WithValue(ctx, RequestIDKey, "r-1")
	log.WithContext(ctx).Info("stage created")

	out := buf.String()
	if !strings.Contains(out, `"company_id":"c-1"`) {
		t.Fatalf("expected company_id in output, got %s", out)
	}
	if !strings.Contains(out, `"request_id":"r-1"`) {
		t.Fatalf("expected request_id in output, got %s", out)
	}
}

func TestWithContextWithoutValuesReturnsSameLogger(t *testing.T) {
	log := Discard()
	if got := log.WithContext(context.Background()); got != log {
		t.Fatal("expected the receiver when ctx carries no ids")
	}
}

func TestDevelopmentUsesTextHandler(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("Development", &buf).Debug("sweep started")
	if !strings.Contains(buf.String(), "msg=\"sweep started\"") {
		t.Fatalf("expected debug text output, got %s", buf.String())
	}
}
