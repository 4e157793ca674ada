package transcript

import "errors"

var (
	// ErrNoTranscript indicates the source has no captions or extractable
	// speech. Permanent: reprocessing with a different method is the only
	// way forward.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrEmptyTranscript indicates extraction succeeded but produced no
	// text. Permanent.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrUnsupportedSource indicates the source reference format is not
	// recognized by this source. Permanent.
	ErrUnsupportedSource = errors.New("unsupported source reference")
)
