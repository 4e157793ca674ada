// Copyright 2026 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chunk

import (
	"errors"
	"strings"

	"github.com/calyptra/lectern/core"
)

// ErrEmptyTranscript indicates the transcript contains no words.
// Permanent input error, never retried.
var ErrEmptyTranscript = errors.New("transcript contains no words")

// Split transforms a transcript into an ordered sequence of overlapping
// chunks. It is deterministic: identical input always produces identical
// chunk boundaries.
//
// Chunks accumulate words until [MinWords, MaxWords] fresh words are
// reached, preferring to cut at a sentence boundary within LookbackWords
// of the max boundary. Each chunk after the first begins with an
// OverlapWords-sized tail of the previous chunk. A transcript shorter
// than MinWords yields exactly one chunk; a trailing remainder below
// MinWords is absorbed by shrinking the preceding cut, never emitted as
// an undersized standalone chunk.
//
// Time bounds come from segments when supplied, otherwise from linear
// interpolation over durationSeconds.
func Split(transcript string, segments []core.TimedSegment, durationSeconds float64, cfg *Config) ([]*core.Chunk, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(transcript)
	if len(words) == 0 {
		return nil, ErrEmptyTranscript
	}

	timer := newTimeMapper(segments, durationSeconds, len(words))

	var chunks []*core.Chunk
	var prevTail []string
	pos := 0

	for pos < len(words) {
		take := cutPoint(words[pos:], cfg)

		fresh := words[pos : pos+take]
		all := make([]string, 0, len(prevTail)+take)
		all = append(all, prevTail...)
		all = append(all, fresh...)

		// The chunk's first word is the start of its overlap tail.
		firstWord := pos - len(prevTail)
		lastWord := pos + take - 1

		chunks = append(chunks, &core.Chunk{
			Index:        len(chunks),
			Text:         strings.Join(all, " "),
			WordCount:    len(all),
			StartSeconds: timer.startOf(firstWord),
			EndSeconds:   timer.endOf(lastWord),
		})

		pos += take
		if pos < len(words) && cfg.OverlapWords > 0 {
			tail := cfg.OverlapWords
			if tail > len(all) {
				tail = len(all)
			}
			prevTail = all[len(all)-tail:]
		}
	}

	return chunks, nil
}

// cutPoint decides how many fresh words the next chunk takes from the
// remaining word stream.
func cutPoint(remaining []string, cfg *Config) int {
	n := len(remaining)
	if n <= cfg.MaxWords {
		return n
	}

	take := cfg.MaxWords
	// Never strand a sub-minimum remainder: shrink this cut so the final
	// chunk still reaches MinWords.
	if n-take < cfg.MinWords {
		take = n - cfg.MinWords
	}

	// Prefer the sentence boundary nearest the max cut, within the
	// lookback window and never below the minimum.
	lowest := take - cfg.LookbackWords
	if lowest < cfg.MinWords {
		lowest = cfg.MinWords
	}
	for i := take - 1; i >= lowest-1 && i >= 0; i-- {
		if endsSentence(remaining[i]) {
			return i + 1
		}
	}
	return take
}

// endsSentence reports whether a word terminates a sentence. Trailing
// quotes and brackets are ignored when looking for the terminator.
func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`+"`")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

// CountWords returns the whitespace-separated word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
