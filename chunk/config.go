package chunk

import "errors"

// Config controls chunk boundaries.
type Config struct {
	// MinWords is the minimum number of fresh (non-overlap) words per chunk.
	MinWords int

	// MaxWords is the maximum number of fresh words per chunk.
	MaxWords int

	// OverlapWords is the size of the previous chunk's tail prepended to
	// each new chunk to preserve context across boundaries.
	OverlapWords int

	// LookbackWords is how far back from the max boundary to search for a
	// sentence boundary before falling back to a plain word-boundary cut.
	LookbackWords int
}

// DefaultConfig returns a Config with sensible defaults for long-form
// video transcripts.
func DefaultConfig() *Config {
	return &Config{
		MinWords:      500,
		MaxWords:      1000,
		OverlapWords:  100,
		LookbackWords: 150,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MinWords < 1 {
		return errors.New("chunk config: MinWords must be at least 1")
	}
	if c.MaxWords < c.MinWords {
		return errors.New("chunk config: MaxWords must be >= MinWords")
	}
	if c.OverlapWords < 0 {
		return errors.New("chunk config: OverlapWords cannot be negative")
	}
	if c.OverlapWords >= c.MinWords {
		return errors.New("chunk config: OverlapWords must be smaller than MinWords")
	}
	if c.LookbackWords < 0 {
		return errors.New("chunk config: LookbackWords cannot be negative")
	}
	return nil
}
