package app

import (
	"fmt"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// formatPlan is the engine configuration for one job
type formatPlan struct {
	Format            string
	ExtractAudio      bool
	AudioCodec        string
	AudioQuality      string
	MergeOutputFormat string
	RemuxVideo        string
	SubtitleLangs     []string
	Warning           string
}

func planFormat(job *domain.Job, caps domain.Capabilities, config *domain.DownloadConfig) formatPlan {
	var plan formatPlan

	if job.MediaKind == domain.MediaAudio {
		plan.Format = "bestaudio/best"
		if caps.TranscoderAvailable {
			plan.ExtractAudio = true
			plan.AudioCodec = config.AudioCodec
			plan.AudioQuality = config.AudioQuality
		} else {
			plan.Warning = "FFmpeg not available, delivering the audio stream in its original format"
		}
	} else {
		plan.Format = videoFormat(job.FormatID, config.MaxHeight, "bestaudio")
		if caps.TranscoderAvailable {
			plan.MergeOutputFormat = config.MergeFormat
		}
	}

	if job.SubtitleOption == domain.SubtitleTextFile {
		plan.SubtitleLangs = []string{job.SubtitleLang}
	}
	return plan
}

// withAudioLanguage forces the audio track to lang and remuxes the result
func (p formatPlan) withAudioLanguage(job *domain.Job, config *domain.DownloadConfig) formatPlan {
	audio := fmt.Sprintf("bestaudio[language=%s]", job.SubtitleLang)
	if job.MediaKind == domain.MediaAudio {
		p.Format = audio
		return p
	}
	p.Format = strings.SplitN(videoFormat(job.FormatID, config.MaxHeight, audio), "/", 2)[0]
	p.RemuxVideo = config.MergeFormat
	return p
}

func (p formatPlan) request(url, outputDir string, s Strategy) domain.ExtractionRequest {
	req := domain.ExtractionRequest{
		URL:               url,
		Format:            p.Format,
		ProxyURL:          s.Egress.ProxyURL(),
		Credential:        s.Credential,
		OutputDir:         outputDir,
		ExtractAudio:      p.ExtractAudio,
		AudioCodec:        p.AudioCodec,
		AudioQuality:      p.AudioQuality,
		MergeOutputFormat: p.MergeOutputFormat,
		RemuxVideo:        p.RemuxVideo,
		SubtitleLangs:     p.SubtitleLangs,
	}
	if len(p.SubtitleLangs) > 0 {
		req.SubtitleFormat = "vtt"
	}
	return req
}

// videoFormat pairs the requested (or best) video with audio, applying the
// height ceiling only when no explicit format id was given
func videoFormat(formatID string, maxHeight int, audio string) string {
	if formatID != "" {
		return formatID + "+" + audio + "/best"
	}
	if maxHeight > 0 {
		return fmt.Sprintf("bestvideo[height<=%d]+%s/best[height<=%d]", maxHeight, audio, maxHeight)
	}
	return "bestvideo+" + audio + "/best"
}

// streamPlan picks a single-pipe format and the filename extension announced to the client
func streamPlan(job *domain.Job, config *domain.DownloadConfig) (format, ext string) {
	if job.MediaKind == domain.MediaAudio {
		return "bestaudio[ext=m4a]/bestaudio/best", "m4a"
	}
	return videoFormat(job.FormatID, config.MaxHeight, "bestaudio"), "mp4"
}

func metadataRequest(url string, s Strategy) domain.ExtractionRequest {
	return domain.ExtractionRequest{
		URL:        url,
		ProxyURL:   s.Egress.ProxyURL(),
		Credential: s.Credential,
	}
}
