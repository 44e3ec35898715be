package app

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

var langPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,35}$`)

// ValidateURL accepts absolute http(s) URLs with a host
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NewInputError("url", "URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.NewInputError("url", "invalid URL: "+raw)
	}
	return nil
}

func validateDownload(req *DownloadRequest, caps domain.Capabilities) error {
	if err := ValidateURL(req.URL); err != nil {
		return err
	}
	if req.MediaKind == "" {
		req.MediaKind = domain.MediaVideo
	}
	if !domain.ValidMediaKind(req.MediaKind) {
		return domain.NewInputError("download_type", "must be video or audio")
	}
	if !domain.ValidSubtitleOption(req.SubtitleOption) {
		return domain.NewInputError("options.subtitle_option", "must be 0, 1 or 2")
	}
	if req.SubtitleOption != domain.SubtitleNone {
		if strings.TrimSpace(req.SubtitleLang) == "" {
			return domain.NewInputError("options.subtitle_lang", "Subtitle language is required")
		}
		if !langPattern.MatchString(req.SubtitleLang) {
			return domain.NewInputError("options.subtitle_lang", "invalid language code")
		}
		if !caps.TranscoderAvailable {
			return domain.NewInputError("options.subtitle_option", "FFmpeg is required for subtitle features")
		}
	}
	return nil
}
