package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	youtube "github.com/kkdai/youtube/v2"

	"github.com/latoulicious/Seiun/pkg/voice"
)

// Config tunes the resolver.
type Config struct {
	// YTDLPPath is the yt-dlp binary used for search and as the stream
	// extraction fallback.
	YTDLPPath string
	// ClientTimeout bounds YouTube API calls made by the native client.
	ClientTimeout time.Duration
	// MaxPlaylistSize caps how many entries a playlist URL expands to.
	MaxPlaylistSize int
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		YTDLPPath:       "yt-dlp",
		ClientTimeout:   15 * time.Second,
		MaxPlaylistSize: 100,
	}
}

// Result is one resolved track: display metadata plus the lazy stream
// producer. The caller attaches playback handlers when it builds the
// voice.Track.
type Result struct {
	Info    voice.TrackInfo
	Produce voice.ProduceFunc
}

// Resolver turns user input (video URL, playlist URL, or search terms)
// into playable tracks. Metadata comes from the native YouTube client
// with yt-dlp as fallback; stream URLs are produced lazily at play time
// because they expire.
type Resolver struct {
	cfg    Config
	client *youtube.Client
}

// NewResolver creates a resolver with its own YouTube client.
func NewResolver(cfg Config) *Resolver {
	if cfg.YTDLPPath == "" {
		cfg.YTDLPPath = "yt-dlp"
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = 15 * time.Second
	}
	if cfg.MaxPlaylistSize <= 0 {
		cfg.MaxPlaylistSize = 100
	}
	return &Resolver{
		cfg: cfg,
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: cfg.ClientTimeout},
		},
	}
}

// ErrNoResults is returned when neither a video nor a search hit matches
// the input.
var ErrNoResults = errors.New("no results found")

// Resolve expands input into one or more results. A playlist URL yields
// up to MaxPlaylistSize entries; anything else yields exactly one.
func (r *Resolver) Resolve(ctx context.Context, input string) ([]Result, error) {
	switch {
	case IsPlaylistURL(input):
		return r.resolvePlaylist(ctx, input)
	case IsURL(input):
		result, err := r.resolveVideo(ctx, input)
		if err != nil {
			return nil, err
		}
		return []Result{result}, nil
	default:
		result, err := r.resolveSearch(ctx, input)
		if err != nil {
			return nil, err
		}
		return []Result{result}, nil
	}
}

// resolveVideo resolves a direct video URL.
func (r *Resolver) resolveVideo(ctx context.Context, pageURL string) (Result, error) {
	videoID := ExtractVideoID(pageURL)
	if videoID == "" {
		return Result{}, fmt.Errorf("no video ID in %q", pageURL)
	}

	info := voice.TrackInfo{
		PageURL:   pageURL,
		VideoID:   videoID,
		Thumbnail: ThumbnailURL(videoID),
	}

	if video, err := r.client.GetVideoContext(ctx, videoID); err == nil {
		info.Title = video.Title
		info.Duration = video.Duration
	} else {
		log.Printf("[Resolver] Native metadata lookup failed for %s, trying yt-dlp: %v", videoID, err)
		title, duration, dlpErr := r.ytdlpMetadata(ctx, pageURL)
		if dlpErr != nil {
			log.Printf("[Resolver] yt-dlp metadata lookup failed for %s: %v", videoID, dlpErr)
		}
		info.Title = title
		info.Duration = duration
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}

	return Result{Info: info, Produce: r.produceByID(videoID)}, nil
}

// resolveSearch treats input as search terms and takes the first hit.
func (r *Resolver) resolveSearch(ctx context.Context, query string) (Result, error) {
	pageURL, title, duration, err := r.ytdlpSearch(ctx, query)
	if err != nil {
		return Result{}, err
	}

	videoID := ExtractVideoID(pageURL)
	if title == "" {
		title = "Unknown Title"
	}
	return Result{
		Info: voice.TrackInfo{
			Title:     title,
			Duration:  duration,
			PageURL:   pageURL,
			VideoID:   videoID,
			Thumbnail: ThumbnailURL(videoID),
		},
		Produce: r.produceByID(videoID),
	}, nil
}

// resolvePlaylist expands a playlist URL into per-entry results.
func (r *Resolver) resolvePlaylist(ctx context.Context, pageURL string) ([]Result, error) {
	playlist, err := r.client.GetPlaylistContext(ctx, pageURL)
	if err != nil {
		// A watch URL with a list parameter still identifies one video;
		// fall back to that before giving up.
		if videoID := ExtractVideoID(pageURL); videoID != "" {
			log.Printf("[Resolver] Playlist fetch failed, resolving %s as a single video: %v", videoID, err)
			result, videoErr := r.resolveVideo(ctx, WatchURL(videoID))
			if videoErr != nil {
				return nil, videoErr
			}
			return []Result{result}, nil
		}
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}

	entries := playlist.Videos
	if len(entries) > r.cfg.MaxPlaylistSize {
		log.Printf("[Resolver] Playlist %q has %d entries, keeping the first %d",
			playlist.Title, len(entries), r.cfg.MaxPlaylistSize)
		entries = entries[:r.cfg.MaxPlaylistSize]
	}
	if len(entries) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		results = append(results, Result{
			Info: voice.TrackInfo{
				Title:     entry.Title,
				Duration:  entry.Duration,
				PageURL:   WatchURL(entry.ID),
				VideoID:   entry.ID,
				Thumbnail: ThumbnailURL(entry.ID),
			},
			Produce: r.produceByID(entry.ID),
		})
	}
	return results, nil
}

// produceByID builds the lazy stream producer for a video. The native
// client goes first; each yt-dlp strategy follows until one yields a URL.
func (r *Resolver) produceByID(videoID string) voice.ProduceFunc {
	return func(ctx context.Context) (string, error) {
		if videoID == "" {
			return "", errors.New("missing video ID")
		}
		streamURL, err := r.nativeStreamURL(ctx, videoID)
		if err == nil {
			return streamURL, nil
		}
		log.Printf("[Resolver] Native stream extraction failed for %s, trying yt-dlp: %v", videoID, err)
		return r.ytdlpStreamURL(ctx, WatchURL(videoID))
	}
}

// nativeStreamURL extracts a direct audio stream URL with the YouTube
// client.
func (r *Resolver) nativeStreamURL(ctx context.Context, videoID string) (string, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("fetching video: %w", err)
	}
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", errors.New("no audio formats available")
	}
	streamURL, err := r.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", fmt.Errorf("building stream URL: %w", err)
	}
	return streamURL, nil
}
