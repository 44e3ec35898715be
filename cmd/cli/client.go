package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient talks to a running mediafetch server
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// postJSON sends payload and decodes a JSON response into out
func (a *apiClient) postJSON(path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := a.http.Post(a.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (a *apiClient) getJSON(path string, out interface{}) error {
	resp, err := a.http.Get(a.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// postToFile streams a successful response body into dir, named after the
// Content-Disposition filename, or into stdout when dir is "-"
func (a *apiClient) postToFile(path string, payload interface{}, dir string) (string, int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", 0, err
	}
	resp, err := a.http.Post(a.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	return saveBody(resp, dir)
}

func (a *apiClient) getToFile(path, dir string) (string, int64, error) {
	resp, err := a.http.Get(a.baseURL + path)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	return saveBody(resp, dir)
}

func saveBody(resp *http.Response, dir string) (string, int64, error) {
	if resp.StatusCode != http.StatusOK {
		return "", 0, decodeResponse(resp, nil)
	}

	if dir == "-" {
		n, err := io.Copy(os.Stdout, resp.Body)
		return "-", n, err
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = "download"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, err
	}
	target := filepath.Join(dir, filepath.Base(name))
	f, err := os.Create(target)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return target, n, err
}

func decodeResponse(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func attachmentName(header string) string {
	const key = "filename="
	i := strings.Index(header, key)
	if i < 0 {
		return ""
	}
	return strings.Trim(header[i+len(key):], `"`)
}
