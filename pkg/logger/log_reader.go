package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogEntry represents a parsed log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var entryKeys = map[string]bool{"timestamp": true, "level": true, "message": true, "category": true}

// LogReader reads back the category files written by MultiLogger
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{logsDir: logsDir}
}

// GetLogPath returns the path to a category log file for a specific date
func (lr *LogReader) GetLogPath(category LogCategory, date time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, date.Format("20060102"))
	return filepath.Join(lr.logsDir, filename)
}

// ReadLogs returns the last limit entries of a category file; 0 means all
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, limit int) ([]LogEntry, error) {
	file, err := os.Open(lr.GetLogPath(category, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseEntry(line, category))
	}
	return entries, nil
}

// SearchLogs returns entries whose message or fields contain query
func (lr *LogReader) SearchLogs(category LogCategory, date time.Time, query string, limit int) ([]LogEntry, error) {
	entries, err := lr.ReadLogs(category, date, 0)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	filtered := []LogEntry{}
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Message), query) || fieldsContain(entry.Fields, query) {
			filtered = append(filtered, entry)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

// tailPoll is how often StreamLogs checks for new lines
var tailPoll = 200 * time.Millisecond

// StreamLogs sends the last backlog entries already in today's category file,
// then every entry appended after them until ctx is done. Backlog and tail
// share one file offset, so no entry is sent twice or skipped at the handoff.
// With backlog 0 only new entries are sent. A file that does not exist yet is
// waited for.
func (lr *LogReader) StreamLogs(ctx context.Context, category LogCategory, backlog int, entries chan<- LogEntry) error {
	return lr.follow(ctx, category, backlog, entries)
}

func (lr *LogReader) follow(ctx context.Context, category LogCategory, backlog int, entries chan<- LogEntry) error {
	ticker := time.NewTicker(tailPoll)
	defer ticker.Stop()

	var (
		file    *os.File
		path    string
		reader  *bufio.Reader
		partial string
		started bool
	)
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	send := func(line string) bool {
		select {
		case entries <- parseEntry(line, category):
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		// follow the daily rotation
		if current := lr.GetLogPath(category, time.Now()); current != path {
			f, err := os.Open(current)
			switch {
			case err == nil:
				if file != nil {
					file.Close()
				}
				file, path, partial = f, current, ""
				reader = bufio.NewReader(file)

				// a file present at the call holds history: replay the backlog, skip the rest
				if !started {
					if backlog > 0 {
						var lines []string
						lines, partial = readComplete(reader)
						if len(lines) > backlog {
							lines = lines[len(lines)-backlog:]
						}
						for _, line := range lines {
							if !send(line) {
								return nil
							}
						}
					} else if _, err := f.Seek(0, io.SeekEnd); err != nil {
						return err
					}
				}
			case !errors.Is(err, os.ErrNotExist):
				return err
			}
		}

		for reader != nil {
			chunk, err := reader.ReadString('\n')
			if err != nil {
				partial += chunk
				break
			}
			line := strings.TrimSpace(partial + chunk)
			partial = ""
			if line == "" {
				continue
			}
			if !send(line) {
				return nil
			}
		}

		started = true

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readComplete drains reader, returning the non-empty complete lines and any
// trailing partial line
func readComplete(reader *bufio.Reader) ([]string, string) {
	var lines []string
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			return lines, chunk
		}
		if line := strings.TrimSpace(chunk); line != "" {
			lines = append(lines, line)
		}
	}
}

func parseEntry(line string, category LogCategory) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{Level: "info", Message: line, Category: string(category)}
	}

	entry := LogEntry{Category: string(category)}
	entry.Timestamp, _ = raw["timestamp"].(string)
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["message"].(string)
	for k, v := range raw {
		if entryKeys[k] {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]interface{})
		}
		entry.Fields[k] = v
	}
	return entry
}

func fieldsContain(fields map[string]interface{}, query string) bool {
	for _, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}
