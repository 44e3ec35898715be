package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SessionLoginClient obtains session cookies by posting a login form.
// One attempt per call, bounded by the client timeout.
type SessionLoginClient struct {
	loginURL string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSessionLoginClient creates a login client for loginURL
func NewSessionLoginClient(loginURL string, timeout time.Duration, logger *zap.Logger) *SessionLoginClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SessionLoginClient{loginURL: loginURL, timeout: timeout, logger: logger}
}

// SessionCookies posts payload to the login endpoint and returns the cookies
// it set, as a Cookie header valid for target
func (c *SessionLoginClient) SessionCookies(ctx context.Context, target string, payload map[string]string) (string, error) {
	if c.loginURL == "" {
		return "", fmt.Errorf("session login is not configured")
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("empty login payload")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Jar: jar, Timeout: c.timeout}

	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", target)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	seen := make(map[string]bool)
	var pairs []string
	collect := func(raw string) {
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		for _, ck := range jar.Cookies(u) {
			if seen[ck.Name] {
				continue
			}
			seen[ck.Name] = true
			pairs = append(pairs, ck.Name+"="+ck.Value)
		}
	}
	collect(target)
	collect(c.loginURL)

	if len(pairs) == 0 {
		return "", fmt.Errorf("login returned no cookies")
	}

	c.logger.Debug("Session login succeeded",
		zap.String("login_url", c.loginURL),
		zap.Int("cookies", len(pairs)))
	return strings.Join(pairs, "; "), nil
}
