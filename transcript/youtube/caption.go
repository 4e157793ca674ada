package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// YouTube timedtext XML structure.
type xmlTranscript struct {
	XMLName xml.Name  `xml:"timedtext"`
	Text    []xmlText `xml:"body>p"`
}

type xmlText struct {
	Start    int64        `xml:"t,attr"` // milliseconds
	Duration int64        `xml:"d,attr"` // milliseconds
	Segments []xmlSegment `xml:"s"`
}

type xmlSegment struct {
	Text string `xml:",chardata"`
}

// captionEntry is one timed caption line.
type captionEntry struct {
	Start    time.Duration
	Duration time.Duration
	Text     string
}

// fetchCaptionEntries downloads and parses a caption track.
func (s *Source) fetchCaptionEntries(ctx context.Context, url string) ([]captionEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read caption response: %w", err)
	}

	return parseTranscriptXML(body)
}

// parseTranscriptXML parses timedtext XML into caption entries.
func parseTranscriptXML(data []byte) ([]captionEntry, error) {
	var parsed xmlTranscript
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("caption XML parse failed: %w", err)
	}

	entries := make([]captionEntry, 0, len(parsed.Text))
	for _, p := range parsed.Text {
		var text string
		for _, seg := range p.Segments {
			text += seg.Text
		}
		if len(text) == 0 {
			continue
		}

		entries = append(entries, captionEntry{
			Start:    time.Duration(p.Start) * time.Millisecond,
			Duration: time.Duration(p.Duration) * time.Millisecond,
			Text:     text,
		})
	}

	return entries, nil
}
