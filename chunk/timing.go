package chunk

import (
	"sort"
	"strings"

	"github.com/calyptra/lectern/core"
)

// timeMapper assigns time bounds to word positions, either by mapping
// words onto segment boundaries or by interpolating over total duration.
type timeMapper struct {
	segments   []core.TimedSegment
	cumWords   []int // cumulative word count at the end of each segment
	duration   float64
	totalWords int
}

func newTimeMapper(segments []core.TimedSegment, duration float64, totalWords int) *timeMapper {
	tm := &timeMapper{
		segments:   segments,
		duration:   duration,
		totalWords: totalWords,
	}
	if len(segments) > 0 {
		tm.cumWords = make([]int, len(segments))
		total := 0
		for i, seg := range segments {
			total += len(strings.Fields(seg.Text))
			tm.cumWords[i] = total
		}
	}
	return tm
}

// segmentFor finds the segment containing the given global word index.
func (tm *timeMapper) segmentFor(word int) int {
	i := sort.SearchInts(tm.cumWords, word+1)
	if i >= len(tm.segments) {
		i = len(tm.segments) - 1
	}
	return i
}

// startOf returns the start time for a chunk whose first word sits at the
// given global index.
func (tm *timeMapper) startOf(word int) float64 {
	if word < 0 {
		word = 0
	}
	if len(tm.segments) > 0 {
		return tm.segments[tm.segmentFor(word)].StartSeconds
	}
	return tm.interpolate(word)
}

// endOf returns the end time for a chunk whose last word sits at the
// given global index.
func (tm *timeMapper) endOf(word int) float64 {
	if len(tm.segments) > 0 {
		return tm.segments[tm.segmentFor(word)].EndSeconds
	}
	return tm.interpolate(word + 1)
}

func (tm *timeMapper) interpolate(word int) float64 {
	if tm.totalWords == 0 || tm.duration <= 0 {
		return 0
	}
	if word > tm.totalWords {
		word = tm.totalWords
	}
	return tm.duration * float64(word) / float64(tm.totalWords)
}
