package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const followPollInterval = 250 * time.Millisecond

// ReadLast returns up to limit trailing lines from the log at path,
// together with the end offset so a follow loop can resume there. A
// missing file yields no lines and offset zero.
func ReadLast(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := newLineScanner(file)
	ring := make([]string, limit)
	count := 0
	next := 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, 0, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines = append(lines, ring[(next+i)%limit])
		}
	} else {
		lines = append(lines, ring[:count]...)
	}
	return lines, offset, nil
}

// ReadFrom returns complete lines appended after offset together with
// the new end offset. An offset past the end of the file means the
// pointer now names a fresh run log, so reading restarts from the top.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

// Follow polls the log for appended lines and hands each one to emit
// until ctx is cancelled.
func Follow(ctx context.Context, path string, offset int64, emit func(string)) error {
	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		lines, next, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, line := range lines {
			emit(line)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
