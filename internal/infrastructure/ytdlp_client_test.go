package infrastructure

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"go.uber.org/zap"
)

const sampleInfoJSON = `{"id":"abc","title":"Sample Clip","duration":12.5,"thumbnail":"https://img/1.jpg","ext":"mp4",
"formats":[{"format_id":"18","ext":"mp4","height":360,"vcodec":"avc1","acodec":"mp4a","language":null},
{"format_id":"140","ext":"m4a","vcodec":"none","acodec":"mp4a","language":"en"}],
"subtitles":{"en":[{"ext":"vtt","url":"https://subs/en.vtt"}]}}`

type fakeRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
	// cookieCopy captures the --cookies file contents while the call runs
	cookieCopy string
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, stdout io.Writer) (string, error) {
	f.calls = append(f.calls, args)
	for i, a := range args {
		if a == "--cookies" && i+1 < len(args) {
			data, _ := os.ReadFile(args[i+1])
			f.cookieCopy = string(data)
		}
	}
	io.WriteString(stdout, f.stdout)
	return f.stderr, f.err
}

func newTestClient(runner CommandRunner) *YTDLPClient {
	cfg := domain.DefaultConfig().Extractor
	lookPath := func(name string) (string, error) {
		if name == "yt-dlp" {
			return "/usr/bin/yt-dlp", nil
		}
		return "", exec.ErrNotFound
	}
	return NewYTDLPClientWithRunner(&cfg, []string{"test-agent"}, runner, lookPath, zap.NewNop())
}

func argValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func TestYTDLPClient_Capabilities(t *testing.T) {
	caps := newTestClient(&fakeRunner{}).Capabilities()

	assert.True(t, caps.ExtractorAvailable)
	assert.False(t, caps.TranscoderAvailable)
}

func TestYTDLPClient_ResolveMetadataOnly(t *testing.T) {
	runner := &fakeRunner{stdout: sampleInfoJSON}
	client := newTestClient(runner)

	info, err := client.Resolve(context.Background(), domain.ExtractionRequest{
		URL:        "https://example.com/watch?v=abc",
		ProxyURL:   "http://10.0.0.1:3128",
		Credential: domain.CredentialSource{Kind: domain.CredentialCaller, CookieHeader: "sid=1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sample Clip", info.Title)
	assert.Equal(t, 12.5, info.Duration)
	assert.Len(t, info.Formats, 2)
	assert.Equal(t, []string{"en"}, info.SubtitleLanguages())
	assert.True(t, info.HasAudioLanguage("en"))

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.Contains(t, args, "-J")
	assert.NotContains(t, args, "--no-simulate")
	assert.Equal(t, "https://example.com/watch?v=abc", args[len(args)-1])
	assert.Equal(t, "--", args[len(args)-2])

	proxy, ok := argValue(args, "--proxy")
	assert.True(t, ok)
	assert.Equal(t, "http://10.0.0.1:3128", proxy)

	header, ok := argValue(args, "--add-header")
	assert.True(t, ok)
	assert.Equal(t, "Cookie:sid=1", header)

	timeout, _ := argValue(args, "--socket-timeout")
	assert.Equal(t, "30", timeout)
	retries, _ := argValue(args, "--extractor-retries")
	assert.Equal(t, "3", retries)
	ua, _ := argValue(args, "--user-agent")
	assert.Equal(t, "test-agent", ua)
}

func TestYTDLPClient_ResolveMaterializing(t *testing.T) {
	runner := &fakeRunner{stdout: sampleInfoJSON + "\n"}
	client := newTestClient(runner)
	dir := t.TempDir()

	_, err := client.Resolve(context.Background(), domain.ExtractionRequest{
		URL:               "https://example.com/v",
		Format:            "bestaudio/best",
		OutputDir:         dir,
		ExtractAudio:      true,
		AudioCodec:        "mp3",
		AudioQuality:      "192",
		SubtitleLangs:     []string{"en"},
		SubtitleFormat:    "vtt",
		MergeOutputFormat: "mp4",
	})
	require.NoError(t, err)

	args := runner.calls[0]
	assert.Contains(t, args, "--no-simulate")
	assert.Contains(t, args, "-x")
	assert.Contains(t, args, "--write-subs")
	assert.NotContains(t, args, "-J")
	assert.NotContains(t, args, "--proxy")
	assert.NotContains(t, args, "--add-header")

	p, _ := argValue(args, "-P")
	assert.Equal(t, dir, p)
	f, _ := argValue(args, "-f")
	assert.Equal(t, "bestaudio/best", f)
	codec, _ := argValue(args, "--audio-format")
	assert.Equal(t, "mp3", codec)
	langs, _ := argValue(args, "--sub-langs")
	assert.Equal(t, "en", langs)
	merge, _ := argValue(args, "--merge-output-format")
	assert.Equal(t, "mp4", merge)
}

func TestYTDLPClient_JarIsCopiedPerCall(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(jar, []byte(validJar), 0600))

	runner := &fakeRunner{stdout: sampleInfoJSON}
	client := newTestClient(runner)

	_, err := client.Resolve(context.Background(), domain.ExtractionRequest{
		URL:        "https://example.com/v",
		Credential: domain.CredentialSource{Kind: domain.CredentialJar, JarPath: jar},
	})
	require.NoError(t, err)

	path, ok := argValue(runner.calls[0], "--cookies")
	require.True(t, ok)
	assert.NotEqual(t, jar, path)
	assert.Equal(t, validJar, runner.cookieCopy)
	assert.NoFileExists(t, path, "temporary cookie copy must be removed after the call")
}

func TestYTDLPClient_StreamTo(t *testing.T) {
	runner := &fakeRunner{stdout: "raw media bytes"}
	client := newTestClient(runner)

	var sb strings.Builder
	err := client.StreamTo(context.Background(), domain.ExtractionRequest{
		URL:    "https://example.com/v",
		Format: "bestvideo+bestaudio/best",
	}, &sb)
	require.NoError(t, err)

	assert.Equal(t, "raw media bytes", sb.String())
	out, _ := argValue(runner.calls[0], "-o")
	assert.Equal(t, "-", out)
}

func TestYTDLPClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		stderr    string
		err       error
		wantFatal bool
		detail    string
	}{
		{
			name:      "unsupported url",
			stderr:    "WARNING: something\nERROR: Unsupported URL: https://example.com/nothing\n",
			err:       errors.New("exit status 1"),
			wantFatal: true,
			detail:    "ERROR: Unsupported URL: https://example.com/nothing",
		},
		{
			name:      "private video",
			stderr:    "ERROR: [youtube] abc: Private video. Sign in if you've been granted access",
			err:       errors.New("exit status 1"),
			wantFatal: true,
		},
		{
			name:   "rate limited",
			stderr: "ERROR: [youtube] abc: HTTP Error 429: Too Many Requests",
			err:    errors.New("exit status 1"),
			detail: "ERROR: [youtube] abc: HTTP Error 429: Too Many Requests",
		},
		{
			name:   "no stderr",
			err:    errors.New("signal: killed"),
			detail: "signal: killed",
		},
		{
			name:      "missing binary",
			err:       exec.ErrNotFound,
			wantFatal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeRunner{stderr: tt.stderr, err: tt.err})

			_, err := client.Resolve(context.Background(), domain.ExtractionRequest{URL: "https://example.com/v"})
			require.Error(t, err)

			var extErr *domain.ExtractionError
			require.True(t, errors.As(err, &extErr))
			assert.Equal(t, tt.wantFatal, extErr.Fatal)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, extErr.Detail)
			}
		})
	}
}

func TestYTDLPClient_UnreadableOutputIsTransient(t *testing.T) {
	client := newTestClient(&fakeRunner{stdout: "not json"})

	_, err := client.Resolve(context.Background(), domain.ExtractionRequest{URL: "https://example.com/v"})
	require.Error(t, err)
	assert.False(t, domain.IsFatal(err))
}
