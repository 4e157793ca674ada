package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/transcript"
	"github.com/kkdai/youtube/v2"
)

// Source implements transcript.Source for YouTube videos using the free
// caption track. Videos without captions fail with ErrNoTranscript; a
// paid speech-to-text source handles those separately.
type Source struct {
	client     youtube.Client
	httpClient *http.Client
	language   string
	logger     *slog.Logger
}

var _ transcript.Source = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithLanguage sets the preferred caption language code.
// Default is "en"; the first available track is used as a fallback.
func WithLanguage(lang string) Option {
	return func(s *Source) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithHTTPClient sets the HTTP client used for caption downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource creates a caption-based YouTube transcript source.
func NewSource(opts ...Option) *Source {
	s := &Source{
		client:     youtube.Client{},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		language:   "en",
		logger:     slog.Default().With("component", "youtube-source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the caption track for a video and converts it into a
// transcript with time-aligned segments. Caption extraction is free, so
// the returned cost is always zero.
func (s *Source) Fetch(ctx context.Context, sourceRef string) (*transcript.Transcript, error) {
	video, err := s.client.GetVideoContext(ctx, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("fetching video info: %w", err)
	}

	track := findCaptionTrack(video, s.language)
	if track == nil {
		s.logger.Info("video has no caption tracks", "video", video.ID)
		return nil, transcript.ErrNoTranscript
	}

	entries, err := s.fetchCaptionEntries(ctx, track.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetching captions: %w", err)
	}
	if len(entries) == 0 {
		return nil, transcript.ErrEmptyTranscript
	}

	segments := make([]core.TimedSegment, len(entries))
	texts := make([]string, len(entries))
	for i, entry := range entries {
		start := entry.Start.Seconds()
		segments[i] = core.TimedSegment{
			Text:         entry.Text,
			StartSeconds: start,
			EndSeconds:   start + entry.Duration.Seconds(),
		}
		texts[i] = entry.Text
	}

	return &transcript.Transcript{
		Text:            strings.Join(texts, " "),
		Segments:        segments,
		Method:          core.TranscriptMethodCaptions,
		Cost:            0,
		DurationSeconds: video.Duration.Seconds(),
		Title:           video.Title,
	}, nil
}

// findCaptionTrack picks the caption track for the preferred language,
// falling back to the first available track.
func findCaptionTrack(video *youtube.Video, lang string) *youtube.CaptionTrack {
	if len(video.CaptionTracks) == 0 {
		return nil
	}
	for i := range video.CaptionTracks {
		if video.CaptionTracks[i].LanguageCode == lang {
			return &video.CaptionTracks[i]
		}
	}
	return &video.CaptionTracks[0]
}
