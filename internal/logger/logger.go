package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Log discards output until Init is called, so packages can log from tests
// without setup.
var Log = log.New(io.Discard, "", log.LstdFlags)

// Init appends to logFilePath, creating its directory when needed. Timestamps
// are UTC to line up with run ids.
func Init(logFilePath string) error {
	if dir := filepath.Dir(logFilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	Log = log.New(file, "", log.LstdFlags|log.LUTC)
	Log.Println("Logger initialized.")
	return nil
}
