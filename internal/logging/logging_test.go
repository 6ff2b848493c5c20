package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "json", &buf, true)
	if err != nil {
		t.Fatal(err)
	}
	log.WithFields(logrus.Fields{"file": "a.xlsx", "status": "created"}).Info("converted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if entry["msg"] != "converted" || entry["file"] != "a.xlsx" || entry["level"] != "info" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", "text", &buf, true)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	if _, err := New("loud", "text", &buf, true); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New("info", "xml", &buf, true); err == nil {
		t.Error("expected error for bad format")
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}
