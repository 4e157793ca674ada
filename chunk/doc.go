// Package chunk splits transcripts into overlapping, time-bounded pieces
// sized for embedding and retrieval.
//
// Splitting is a pure function of its inputs: no I/O, no clock, fully
// deterministic. The pipeline calls it during the processing stage; it is
// also usable standalone.
package chunk
