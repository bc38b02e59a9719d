package resolver

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// streamStrategies are tried in order until one yields a stream URL.
// Client impersonation works around per-client format restrictions.
var streamStrategies = [][]string{
	{"-f", "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio[ext=mp4]/bestaudio"},
	{"-f", "bestaudio", "--extractor-args", "youtube:player_client=android"},
	{"-f", "bestaudio", "--extractor-args", "youtube:player_client=web"},
	{"-f", "worst[ext=m4a]/worst"},
}

// ytdlpStreamURL shells out to yt-dlp for a direct audio stream URL,
// walking the strategy list.
func (r *Resolver) ytdlpStreamURL(ctx context.Context, pageURL string) (string, error) {
	for i, strategy := range streamStrategies {
		args := append([]string{"--no-playlist", "--no-warnings", "-g"}, strategy...)
		args = append(args, pageURL)

		out, err := r.runYTDLP(ctx, args)
		if err != nil {
			log.Printf("[Resolver] Stream strategy %d/%d failed: %v", i+1, len(streamStrategies), err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		// -g prints one URL per requested format; the first line is the
		// audio stream.
		if lines := splitLines(out); len(lines) > 0 {
			return lines[0], nil
		}
	}
	return "", fmt.Errorf("no stream URL for %s after %d strategies", pageURL, len(streamStrategies))
}

// ytdlpMetadata fetches title and duration for a video URL.
func (r *Resolver) ytdlpMetadata(ctx context.Context, pageURL string) (string, time.Duration, error) {
	out, err := r.runYTDLP(ctx, []string{
		"--no-playlist",
		"--no-warnings",
		"--print", "title",
		"--print", "duration",
		pageURL,
	})
	if err != nil {
		return "", 0, fmt.Errorf("extracting metadata: %w", err)
	}

	lines := splitLines(out)
	var title string
	var duration time.Duration
	if len(lines) >= 1 {
		title = lines[0]
	}
	if len(lines) >= 2 {
		duration = parseSeconds(lines[1])
	}
	return title, duration, nil
}

// ytdlpSearch resolves search terms to the first hit's page URL, title
// and duration.
func (r *Resolver) ytdlpSearch(ctx context.Context, query string) (string, string, time.Duration, error) {
	cmd := exec.CommandContext(ctx, r.cfg.YTDLPPath,
		"--no-playlist",
		"--no-warnings",
		"--print", "webpage_url",
		"--print", "title",
		"--print", "duration",
		"--max-downloads", "1",
		"ytsearch1:"+query,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	// --max-downloads makes yt-dlp exit non-zero once the cap is hit, so
	// the output is parsed before the exit status is judged.
	runErr := cmd.Run()

	lines := splitLines(out.String())
	var pageURL, title string
	var duration time.Duration
	if len(lines) >= 1 {
		pageURL = lines[0]
	}
	if len(lines) >= 2 {
		title = lines[1]
	}
	if len(lines) >= 3 {
		duration = parseSeconds(lines[2])
	}

	if pageURL == "" {
		if runErr != nil {
			return "", "", 0, fmt.Errorf("searching %q: %w (stderr: %s)", query, runErr, strings.TrimSpace(stderr.String()))
		}
		return "", "", 0, ErrNoResults
	}
	return pageURL, title, duration, nil
}

func (r *Resolver) runYTDLP(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, r.cfg.YTDLPPath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return out.String(), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// parseSeconds converts yt-dlp's duration output (seconds, possibly
// fractional, "None" when unknown) to a Duration.
func parseSeconds(s string) time.Duration {
	if s == "" || s == "None" || s == "NA" {
		return 0
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
