package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nightrunner.log")
	if err := Init(path); err != nil {
		t.Fatal(err)
	}
	Log.Printf("[test] hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Logger initialized.") || !strings.Contains(string(data), "[test] hello") {
		t.Errorf("log = %q", data)
	}
}
