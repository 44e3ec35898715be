package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://example.com/video",
		"  https://example.com/padded  ",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateURL(u), u)
	}

	invalid := []string{"", "   ", "example.com/video", "ftp://example.com/file", "https://", "javascript:alert(1)"}
	for _, u := range invalid {
		err := ValidateURL(u)
		var inputErr *domain.InputError
		assert.ErrorAs(t, err, &inputErr, u)
	}
}

func TestValidateDownload_DefaultsKind(t *testing.T) {
	req := DownloadRequest{URL: testURL}
	require.NoError(t, validateDownload(&req, domain.Capabilities{}))
	assert.Equal(t, domain.MediaVideo, req.MediaKind)
}

func TestValidateDownload_Subtitles(t *testing.T) {
	caps := domain.Capabilities{TranscoderAvailable: true}

	req := DownloadRequest{URL: testURL, SubtitleOption: domain.SubtitleTextFile, SubtitleLang: "pt-BR"}
	assert.NoError(t, validateDownload(&req, caps))

	req = DownloadRequest{URL: testURL, SubtitleOption: domain.SubtitleTextFile, SubtitleLang: "../etc"}
	assert.ErrorContains(t, validateDownload(&req, caps), "invalid language code")

	req = DownloadRequest{URL: testURL, SubtitleOption: domain.SubtitleTextFile, SubtitleLang: " "}
	assert.ErrorContains(t, validateDownload(&req, caps), "Subtitle language is required")

	req = DownloadRequest{URL: testURL, SubtitleOption: domain.SubtitleAudioTrackPreference, SubtitleLang: "en"}
	assert.ErrorContains(t, validateDownload(&req, domain.Capabilities{}), "FFmpeg is required")

	// language is ignored when no subtitle handling is requested
	req = DownloadRequest{URL: testURL, SubtitleLang: "../etc"}
	assert.NoError(t, validateDownload(&req, domain.Capabilities{}))
}
