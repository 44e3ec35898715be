package infrastructure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// ValidateCookieJar checks that path parses as a Netscape cookie file holding
// at least one cookie
func ValidateCookieJar(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cookie jar: %w", err)
	}
	defer f.Close()
	return parseCookieJar(f)
}

func parseCookieJar(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	cookies := 0
	sawHeader := false

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, netscapeHeader) || strings.HasPrefix(line, "# HTTP Cookie File") {
			sawHeader = true
			continue
		}
		// HttpOnly cookies are written as comments with this prefix
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = strings.TrimPrefix(line, "#HttpOnly_")
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return fmt.Errorf("line %d: expected 7 tab-separated fields, got %d", lineNo, len(fields))
		}
		if fields[1] != "TRUE" && fields[1] != "FALSE" {
			return fmt.Errorf("line %d: invalid include-subdomains flag %q", lineNo, fields[1])
		}
		cookies++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read cookie jar: %w", err)
	}
	if !sawHeader && cookies == 0 {
		return fmt.Errorf("not a Netscape cookie file")
	}
	if cookies == 0 {
		return fmt.Errorf("cookie jar is empty")
	}
	return nil
}

// copyCookieJar copies the jar into a private temp file; yt-dlp rewrites its
// --cookies file on exit and the stored jar must stay untouched
func copyCookieJar(path string) (string, func(), error) {
	src, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open cookie jar: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "mediafetch-cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create cookie copy: %w", err)
	}
	cleanup := func() { os.Remove(dst.Name()) }

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to copy cookie jar: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to copy cookie jar: %w", err)
	}
	return dst.Name(), cleanup, nil
}
