package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os/exec"
	"strconv"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

// Output template relative to the job directory
const outputTemplate = "%(title)s.%(ext)s"

// stderr fragments that no retry through another proxy or cookie can fix
var fatalMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"video unavailable",
	"private video",
	"this video is private",
	"has been removed",
	"does not exist",
	"account has been terminated",
}

// CommandRunner executes one engine invocation, streaming stdout to the writer
// and returning captured stderr
type CommandRunner interface {
	Run(ctx context.Context, binary string, args []string, stdout io.Writer) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, binary string, args []string, stdout io.Writer) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// YTDLPClient implements domain.ExtractionClient on top of the yt-dlp binary
type YTDLPClient struct {
	config     *domain.ExtractorConfig
	userAgents []string
	runner     CommandRunner
	lookPath   func(string) (string, error)
	logger     *zap.Logger
}

// NewYTDLPClient creates a client that shells out to the configured binary
func NewYTDLPClient(config *domain.ExtractorConfig, userAgents []string, logger *zap.Logger) *YTDLPClient {
	return NewYTDLPClientWithRunner(config, userAgents, execRunner{}, exec.LookPath, logger)
}

// NewYTDLPClientWithRunner creates a client with a custom command runner and PATH lookup
func NewYTDLPClientWithRunner(config *domain.ExtractorConfig, userAgents []string, runner CommandRunner, lookPath func(string) (string, error), logger *zap.Logger) *YTDLPClient {
	return &YTDLPClient{
		config:     config,
		userAgents: userAgents,
		runner:     runner,
		lookPath:   lookPath,
		logger:     logger,
	}
}

// Capabilities reports whether yt-dlp and ffmpeg are on PATH
func (c *YTDLPClient) Capabilities() domain.Capabilities {
	caps := domain.Capabilities{}
	if _, err := c.lookPath(c.config.Binary); err == nil {
		caps.ExtractorAvailable = true
	}
	if _, err := c.lookPath(c.ffmpegBinary()); err == nil {
		caps.TranscoderAvailable = true
	}
	return caps
}

// Resolve runs yt-dlp once; metadata only unless req.OutputDir is set
func (c *YTDLPClient) Resolve(ctx context.Context, req domain.ExtractionRequest) (*domain.MediaInfo, error) {
	timeout := c.config.DownloadTimeout
	if req.MetadataOnly() {
		timeout = c.config.MetadataTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args, cleanup, err := c.buildArgs(req, false)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var stdout bytes.Buffer
	if err := c.run(ctx, args, &stdout); err != nil {
		return nil, err
	}

	info, err := parseMediaInfo(stdout.Bytes())
	if err != nil {
		return nil, &domain.ExtractionError{Detail: "unreadable engine output", Err: err}
	}
	return info, nil
}

// StreamTo pipes the selected format to w
func (c *YTDLPClient) StreamTo(ctx context.Context, req domain.ExtractionRequest, w io.Writer) error {
	if c.config.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.DownloadTimeout)
		defer cancel()
	}

	args, cleanup, err := c.buildArgs(req, true)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.run(ctx, args, w)
}

func (c *YTDLPClient) run(ctx context.Context, args []string, stdout io.Writer) error {
	c.logger.Debug("Running extractor",
		zap.String("command", RedactedCommand(c.config.Binary, args...)))

	stderr, err := c.runner.Run(ctx, c.config.Binary, args, stdout)
	if err == nil {
		return nil
	}
	return classifyFailure(ctx, err, stderr)
}

// buildArgs assembles the yt-dlp command line. The returned cleanup removes any
// temporary cookie copy and must always be called.
func (c *YTDLPClient) buildArgs(req domain.ExtractionRequest, stream bool) ([]string, func(), error) {
	cleanup := func() {}
	args := []string{"--no-playlist", "--no-progress", "--no-check-certificate", "--geo-bypass"}

	if c.config.SocketTimeoutSeconds > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(c.config.SocketTimeoutSeconds))
	}
	if c.config.ExtractorRetries > 0 {
		args = append(args, "--extractor-retries", strconv.Itoa(c.config.ExtractorRetries))
	}
	if ua := c.pickUserAgent(); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	if bin := c.config.FFmpegBinary; bin != "" && bin != "ffmpeg" {
		args = append(args, "--ffmpeg-location", bin)
	}
	if req.ProxyURL != "" {
		args = append(args, "--proxy", req.ProxyURL)
	}

	switch req.Credential.Kind {
	case domain.CredentialCaller, domain.CredentialSession:
		if req.Credential.CookieHeader != "" {
			args = append(args, "--add-header", "Cookie:"+req.Credential.CookieHeader)
		}
	case domain.CredentialJar:
		path, rm, err := copyCookieJar(req.Credential.JarPath)
		if err != nil {
			return nil, cleanup, &domain.ExtractionError{Detail: "cookie jar unavailable", Err: err}
		}
		cleanup = rm
		args = append(args, "--cookies", path)
	}

	if req.Format != "" {
		args = append(args, "-f", req.Format)
	}

	switch {
	case stream:
		args = append(args, "-o", "-")
	case req.MetadataOnly():
		args = append(args, "-J")
	default:
		args = append(args,
			"--no-simulate", "--dump-json",
			"--restrict-filenames",
			"-P", req.OutputDir,
			"-o", outputTemplate,
		)
		if req.ExtractAudio {
			args = append(args, "-x")
			if req.AudioCodec != "" {
				args = append(args, "--audio-format", req.AudioCodec)
			}
			if req.AudioQuality != "" {
				args = append(args, "--audio-quality", req.AudioQuality)
			}
		}
		if req.MergeOutputFormat != "" {
			args = append(args, "--merge-output-format", req.MergeOutputFormat)
		}
		if req.RemuxVideo != "" {
			args = append(args, "--remux-video", req.RemuxVideo)
		}
		if len(req.SubtitleLangs) > 0 {
			subFormat := req.SubtitleFormat
			if subFormat == "" {
				subFormat = "vtt"
			}
			args = append(args,
				"--write-subs",
				"--sub-langs", strings.Join(req.SubtitleLangs, ","),
				"--sub-format", subFormat,
				"--convert-subs", subFormat,
			)
		}
	}

	args = append(args, "--", req.URL)
	return args, cleanup, nil
}

func (c *YTDLPClient) pickUserAgent() string {
	if len(c.userAgents) == 0 {
		return ""
	}
	return c.userAgents[rand.Intn(len(c.userAgents))]
}

func (c *YTDLPClient) ffmpegBinary() string {
	if c.config.FFmpegBinary == "" {
		return "ffmpeg"
	}
	return c.config.FFmpegBinary
}

// classifyFailure turns a failed run into an ExtractionError
func classifyFailure(ctx context.Context, err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &domain.ExtractionError{Fatal: true, Detail: "extraction engine not installed", Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.ExtractionError{Detail: "extraction timed out or was cancelled", Err: ctxErr}
	}

	detail := lastErrorLine(stderr)
	if detail == "" {
		detail = err.Error()
	}
	lower := strings.ToLower(detail)
	for _, marker := range fatalMarkers {
		if strings.Contains(lower, marker) {
			return &domain.ExtractionError{Fatal: true, Detail: detail, Err: err}
		}
	}
	return &domain.ExtractionError{Detail: detail, Err: err}
}

func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "ERROR:") {
			return strings.TrimSpace(lines[i])
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// parseMediaInfo reads the first JSON document yt-dlp printed
func parseMediaInfo(data []byte) (*domain.MediaInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty output")
	}
	var info domain.MediaInfo
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
