package infrastructure

import (
	"net/url"
	"strings"
)

// ShellEscape escapes a string for display in a shell command line.
// Used for logging only; exec.Command passes arguments verbatim.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsFunc(s, isShellSpecialChar) {
		return s
	}
	// ' becomes '"'"' (close quote, quoted quote, reopen)
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellEscapeCommand renders binary and args as one escaped command line
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, ShellEscape(binary))
	for _, arg := range args {
		parts = append(parts, ShellEscape(arg))
	}
	return strings.Join(parts, " ")
}

// RedactedCommand is ShellEscapeCommand with cookie values and proxy
// passwords masked
func RedactedCommand(binary string, args ...string) string {
	redacted := make([]string, len(args))
	for i, arg := range args {
		redacted[i] = arg
		if i == 0 {
			continue
		}
		switch args[i-1] {
		case "--add-header":
			if name, _, ok := strings.Cut(arg, ":"); ok && strings.EqualFold(name, "cookie") {
				redacted[i] = name + ":<redacted>"
			}
		case "--proxy":
			redacted[i] = RedactProxyURL(arg)
		}
	}
	return ShellEscapeCommand(binary, redacted...)
}

// RedactProxyURL masks the password of a proxy URL
func RedactProxyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// isShellSpecialChar returns true if the character has special meaning in shell
func isShellSpecialChar(c rune) bool {
	switch c {
	case ' ', '\t', '\'', '"', '$', '`', '\\', '!', '*', '?', '[', ']',
		'(', ')', '{', '}', '|', ';', '<', '>', '&', '~', '#', '%', '\n', '\r':
		return true
	default:
		return false
	}
}
