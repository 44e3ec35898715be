package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
	rootCmd   = &cobra.Command{
		Use:   "mediafetch",
		Short: "mediafetch CLI - resolve and download media through a mediafetch server",
		Long:  `A command-line client for the mediafetch HTTP API.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "Server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Request timeout")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(jobCmd)
}

func client() *apiClient {
	return newAPIClient(serverURL, timeout)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var extractCmd = &cobra.Command{
	Use:   "extract [url]",
	Short: "Show title, formats and subtitle languages of a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cookies, _ := cmd.Flags().GetString("cookies")

		var resp struct {
			Data struct {
				Title             string   `json:"title"`
				Duration          float64  `json:"duration"`
				FFmpegAvailable   bool     `json:"ffmpeg_available"`
				SubtitleLanguages []string `json:"subtitle_languages"`
				Formats           []struct {
					FormatID   string  `json:"format_id"`
					Ext        string  `json:"ext"`
					Resolution string  `json:"resolution"`
					VCodec     string  `json:"vcodec"`
					ACodec     string  `json:"acodec"`
					Filesize   float64 `json:"filesize"`
				} `json:"formats"`
			} `json:"data"`
		}
		payload := map[string]string{"url": args[0], "cookies": cookies}
		if err := client().postJSON("/api/extract", payload, &resp); err != nil {
			fail(err)
		}

		d := resp.Data
		fmt.Printf("Title:     %s\n", d.Title)
		fmt.Printf("Duration:  %s\n", time.Duration(d.Duration*float64(time.Second)).Round(time.Second))
		fmt.Printf("FFmpeg:    %v\n", d.FFmpegAvailable)
		fmt.Printf("Subtitles: %v\n\n", d.SubtitleLanguages)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FORMAT\tEXT\tRESOLUTION\tVCODEC\tACODEC\tSIZE")
		for _, f := range d.Formats {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				f.FormatID, f.Ext, f.Resolution, f.VCodec, f.ACodec, humanSize(int64(f.Filesize)))
		}
		w.Flush()
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Prepare a file on the server and optionally fetch it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		var resp struct {
			DownloadID       string `json:"download_id"`
			Filename         string `json:"filename"`
			SubtitleFilename string `json:"subtitle_filename"`
			Warning          string `json:"warning"`
		}
		if err := client().postJSON("/api/download", mediaPayload(cmd, args[0]), &resp); err != nil {
			fail(err)
		}

		fmt.Printf("Download ready!\n")
		fmt.Printf("ID:       %s\n", resp.DownloadID)
		fmt.Printf("File:     %s\n", resp.Filename)
		if resp.SubtitleFilename != "" {
			fmt.Printf("Subtitle: %s\n", resp.SubtitleFilename)
		}
		if resp.Warning != "" {
			fmt.Printf("Warning:  %s\n", resp.Warning)
		}
		if output == "" {
			return
		}

		c := client()
		for _, name := range []string{resp.SubtitleFilename, resp.Filename} {
			if name == "" {
				continue
			}
			path, n, err := c.getToFile(fileRoute(resp.DownloadID, name), output)
			if err != nil {
				fail(err)
			}
			fmt.Printf("Saved %s (%s)\n", path, humanSize(n))
		}
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [url]",
	Short: "Stream media from the server without a server-side file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		path, n, err := client().postToFile("/api/stream", mediaPayload(cmd, args[0]), output)
		if err != nil {
			fail(err)
		}
		if path != "-" {
			fmt.Printf("Saved %s (%s)\n", path, humanSize(n))
		}
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [url...]",
	Short: "Resolve metadata for several URLs",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Count   int `json:"count"`
			Results []struct {
				URL     string `json:"url"`
				Status  string `json:"status"`
				Title   string `json:"title"`
				Message string `json:"message"`
			} `json:"results"`
		}
		if err := client().postJSON("/api/batch", map[string][]string{"urls": args}, &resp); err != nil {
			fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tURL\tTITLE / ERROR")
		for _, r := range resp.Results {
			detail := r.Title
			if r.Status != "ready" {
				detail = r.Message
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Status, truncate(r.URL, 50), truncate(detail, 60))
		}
		w.Flush()
		fmt.Printf("\n%d of %d ready\n", resp.Count, len(resp.Results))
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run the expiry sweep now",
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Removed int `json:"removed"`
		}
		if err := client().postJSON("/api/cleanup", struct{}{}, &resp); err != nil {
			fail(err)
		}
		fmt.Printf("Cleanup completed, %d expired directories removed\n", resp.Removed)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health and capabilities",
	Run: func(cmd *cobra.Command, args []string) {
		var resp struct {
			Status             string `json:"status"`
			ExtractorAvailable bool   `json:"extractor_available"`
			FFmpegAvailable    bool   `json:"ffmpeg_available"`
			TempDirSize        int64  `json:"temp_dir_size"`
			ActiveDownloads    int    `json:"active_downloads"`
			MaxConcurrent      int    `json:"max_concurrent"`
		}
		if err := client().getJSON("/api/health", &resp); err != nil {
			fail(err)
		}

		fmt.Println("Server Health:")
		fmt.Printf("  Status:     %s\n", resp.Status)
		fmt.Printf("  Extractor:  %v\n", resp.ExtractorAvailable)
		fmt.Printf("  FFmpeg:     %v\n", resp.FFmpegAvailable)
		fmt.Printf("  Temp size:  %s\n", humanSize(resp.TempDirSize))
		fmt.Printf("  Workers:    %d/%d\n", resp.ActiveDownloads, resp.MaxConcurrent)
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [id|stats]",
	Short: "Show a job record or job statistics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if args[0] == "stats" {
			var resp struct {
				Stats map[string]int64 `json:"stats"`
			}
			if err := client().getJSON("/api/jobs/stats", &resp); err != nil {
				fail(err)
			}
			fmt.Println("Job Statistics:")
			fmt.Printf("  Total:       %d\n", resp.Stats["total"])
			fmt.Printf("  In progress: %d\n", resp.Stats["in_progress"])
			fmt.Printf("  Completed:   %d\n", resp.Stats["completed"])
			fmt.Printf("  Failed:      %d\n", resp.Stats["failed"])
			return
		}

		var resp struct {
			Job map[string]interface{} `json:"job"`
		}
		if err := client().getJSON("/api/jobs/"+url.PathEscape(args[0]), &resp); err != nil {
			fail(err)
		}
		pretty, _ := json.MarshalIndent(resp.Job, "", "  ")
		fmt.Println(string(pretty))
	},
}

func init() {
	extractCmd.Flags().String("cookies", "", "Cookie header to send with the request")

	for _, cmd := range []*cobra.Command{downloadCmd, streamCmd} {
		cmd.Flags().StringP("format", "f", "", "Format id from extract")
		cmd.Flags().BoolP("audio", "a", false, "Download audio only")
		cmd.Flags().StringP("name", "n", "", "Custom file name without extension")
		cmd.Flags().Int("subtitle-option", 0, "0 none, 1 prefer audio track language, 2 text transcript")
		cmd.Flags().String("subtitle-lang", "", "Subtitle or audio track language")
		cmd.Flags().String("cookies", "", "Cookie header to send with the request")
	}
	downloadCmd.Flags().StringP("output", "o", "", "Directory to fetch the prepared files into")
	streamCmd.Flags().StringP("output", "o", ".", "Directory to save into, - for stdout")
}

func mediaPayload(cmd *cobra.Command, target string) map[string]interface{} {
	format, _ := cmd.Flags().GetString("format")
	audio, _ := cmd.Flags().GetBool("audio")
	name, _ := cmd.Flags().GetString("name")
	subOption, _ := cmd.Flags().GetInt("subtitle-option")
	subLang, _ := cmd.Flags().GetString("subtitle-lang")
	cookies, _ := cmd.Flags().GetString("cookies")

	downloadType := "video"
	if audio {
		downloadType = "audio"
	}
	return map[string]interface{}{
		"url":           target,
		"format_id":     format,
		"download_type": downloadType,
		"custom_name":   name,
		"cookies":       cookies,
		"options": map[string]interface{}{
			"subtitle_option": subOption,
			"subtitle_lang":   subLang,
		},
	}
}

func fileRoute(id, name string) string {
	return "/api/file/" + url.PathEscape(id) + "/" + url.PathEscape(name)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
