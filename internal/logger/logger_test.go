//go:build unit

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"go-ws-relay/internal/config"
	"strings"
	"testing"
)

// decode parses a single JSON log line.
func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log output as json: %v\noutput: %s", err, buf.String())
	}
	return entry
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "info", Format: "console"}, &buf)

	log.Info("relay started")

	output := buf.String()
	if !strings.Contains(output, "relay started") {
		t.Errorf("expected log output to contain 'relay started', but got '%s'", output)
	}
	if strings.Contains(output, "{") {
		t.Errorf("expected console format, but got json-like output: %s", output)
	}
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "error", Format: "json"}, &buf)

	log.Error(errors.New("broker unreachable"), "Failed to subscribe to broker")

	entry := decode(t, &buf)
	if entry["level"] != "error" {
		t.Errorf("expected log level 'error', got '%v'", entry["level"])
	}
	if entry["message"] != "Failed to subscribe to broker" {
		t.Errorf("expected message 'Failed to subscribe to broker', got '%v'", entry["message"])
	}
	if entry["error"] != "broker unreachable" {
		t.Errorf("expected error 'broker unreachable', got '%v'", entry["error"])
	}
}

func TestLevels(t *testing.T) {
	testCases := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"debug", true, true, true},
		{"warn", false, false, true},
		{"", false, true, true},
		{"bogus", false, true, true},
	}
	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(config.LogConfig{Level: tc.level, Format: "console"}, &buf)

			log.Debug("debug line")
			log.Info("info line")
			log.Warn("warn line")

			output := buf.String()
			if got := strings.Contains(output, "debug line"); got != tc.wantDebug {
				t.Errorf("debug line logged = %v; want %v", got, tc.wantDebug)
			}
			if got := strings.Contains(output, "info line"); got != tc.wantInfo {
				t.Errorf("info line logged = %v; want %v", got, tc.wantInfo)
			}
			if got := strings.Contains(output, "warn line"); got != tc.wantWarn {
				t.Errorf("warn line logged = %v; want %v", got, tc.wantWarn)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "debug", Format: "json"}, &buf).
		With(map[string]interface{}{"conn_id": "abc"})

	log.Debug("connected")

	if entry := decode(t, &buf); entry["conn_id"] != "abc" {
		t.Errorf("expected conn_id 'abc', got '%v'", entry["conn_id"])
	}
}

func TestContext(t *testing.T) {
	fallback := Nop()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger for an empty context")
	}

	var buf bytes.Buffer
	reqLog := New(config.LogConfig{Level: "info", Format: "json"}, &buf).
		With(map[string]interface{}{"request_id": "req-1"})
	ctx := NewContext(context.Background(), reqLog)

	FromContext(ctx, fallback).Info("upgrading")

	if entry := decode(t, &buf); entry["request_id"] != "req-1" {
		t.Errorf("expected request_id 'req-1', got '%v'", entry["request_id"])
	}
}
