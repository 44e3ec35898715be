package infrastructure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const maxCueLine = 1024 * 1024

// ConvertToText strips a WebVTT track down to its spoken lines: cue indices,
// timing lines, the header and blank lines are dropped, the rest keep their order.
func ConvertToText(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxCueLine)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isCueIndex(line) || strings.Contains(line, "-->") || strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if _, err := out.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read subtitle track: %w", err)
	}
	return out.Flush()
}

// ConvertFile converts src into dst and removes src once dst is written
func ConvertFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open subtitle track: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create text subtitle: %w", err)
	}
	if err := ConvertToText(in, out); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write text subtitle: %w", err)
	}

	in.Close()
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove subtitle track: %w", err)
	}
	return nil
}

func isCueIndex(line string) bool {
	for _, c := range line {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
