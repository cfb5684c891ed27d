package journal

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends monitoring lines to a local text file and trims it to
// the most recent lines on demand.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink returns a sink for path. The file and its directory are
// created on first write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the file location.
func (f *FileSink) Path() string { return f.path }

// Append writes line followed by a newline.
func (f *FileSink) Append(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := file.WriteString(line + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("write log file: %w", err)
	}
	return file.Close()
}

// Rotate keeps only the last maxLines non-blank lines, in order, and returns
// how many lines were dropped. A missing file is not an error.
func (f *FileSink) Rotate(maxLines int) (int, error) {
	if maxLines < 1 {
		return 0, fmt.Errorf("max lines must be positive, got %d", maxLines)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}

	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan log file: %w", err)
	}

	if len(lines) <= maxLines {
		return 0, nil
	}
	dropped := len(lines) - maxLines
	kept := lines[dropped:]

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".rotate-*")
	if err != nil {
		return 0, fmt.Errorf("create temp log file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range kept {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write temp log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("close temp log file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("replace log file: %w", err)
	}
	return dropped, nil
}
