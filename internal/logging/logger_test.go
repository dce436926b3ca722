package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"default is zap", Options{}, false},
		{"zap debug", Options{Backend: "zap", Level: "debug"}, false},
		{"logrus warn", Options{Backend: "logrus", Level: "warn"}, false},
		{"unknown backend", Options{Backend: "glog"}, true},
		{"bad zap level", Options{Backend: "zap", Level: "loud"}, true},
		{"bad logrus level", Options{Backend: "logrus", Level: "loud"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, sync, err := New(tc.opts)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil || sync == nil {
				t.Fatal("expected logger and sync func")
			}
			sync()
		})
	}
}

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := ZapLogger{L: zap.New(core)}

	l.Error("flush failed", Fields{"item_id": int64(42), "err": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["item_id"] != int64(42) {
		t.Errorf("expected item_id 42, got %v", ctx["item_id"])
	}
	if ctx["err"] != "boom" {
		t.Errorf("expected err boom, got %v", ctx["err"])
	}
}

func TestLogrusLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Info("stock fetched", Fields{"item_id": 7})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got["msg"] != "stock fetched" || got["item_id"].(float64) != 7 {
		t.Fatalf("unexpected entry: %v", got)
	}
}
