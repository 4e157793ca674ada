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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types persisted in the metadata store,
// the event queue, and the cache store. Field order is part of the wire
// format; append new fields, never reorder.

var (
	// IDMUS serializes an ID.
	IDMUS = idMUS{}
	// ContentItemMUS serializes a ContentItem.
	ContentItemMUS = contentItemMUS{}
	// ChunkMUS serializes a Chunk.
	ChunkMUS = chunkMUS{}
	// PipelineEventMUS serializes a PipelineEvent.
	PipelineEventMUS = pipelineEventMUS{}
	// UsageRecordMUS serializes a UsageRecord.
	UsageRecordMUS = usageRecordMUS{}
	// SearchResultMUS serializes a SearchResult for cache entries.
	SearchResultMUS = searchResultMUS{}
)

type idMUS struct{}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

// timeMUS encodes a time.Time as a zero flag plus Unix microseconds.
// The flag keeps the zero value round-trippable, which UnixMicro alone
// cannot represent.
type timeMUS struct{}

func (timeMUS) Size(t time.Time) int {
	size := ord.Bool.Size(t.IsZero())
	if !t.IsZero() {
		size += varint.Int64.Size(t.UnixMicro())
	}
	return size
}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	n := ord.Bool.Marshal(t.IsZero(), bs)
	if !t.IsZero() {
		n += varint.Int64.Marshal(t.UnixMicro(), bs[n:])
	}
	return n
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	zero, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || zero {
		return time.Time{}, n, err
	}
	micros, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

var timeSer = timeMUS{}

// vectorMUS encodes an embedding vector as a length-prefixed sequence of
// raw float32 values.
type vectorMUS struct{}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := 0; i < length; i++ {
		f, n1, err := raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

var vectorSer = vectorMUS{}

// segmentsMUS encodes a transcript's time alignment as a length-prefixed
// sequence of segments.
type segmentsMUS struct{}

func (segmentsMUS) Size(segs []TimedSegment) int {
	size := varint.Int.Size(len(segs))
	for _, s := range segs {
		size += ord.String.Size(s.Text) +
			raw.Float64.Size(s.StartSeconds) +
			raw.Float64.Size(s.EndSeconds)
	}
	return size
}

func (segmentsMUS) Marshal(segs []TimedSegment, bs []byte) int {
	n := varint.Int.Marshal(len(segs), bs)
	for _, s := range segs {
		n += ord.String.Marshal(s.Text, bs[n:])
		n += raw.Float64.Marshal(s.StartSeconds, bs[n:])
		n += raw.Float64.Marshal(s.EndSeconds, bs[n:])
	}
	return n
}

func (segmentsMUS) Unmarshal(bs []byte) ([]TimedSegment, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	segs := make([]TimedSegment, length)
	for i := 0; i < length; i++ {
		var n1 int
		if segs[i].Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if segs[i].StartSeconds, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
		if segs[i].EndSeconds, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return segs, n, nil
}

var segmentsSer = segmentsMUS{}

type contentItemMUS struct{}

func (contentItemMUS) Size(item ContentItem) int {
	return IDMUS.Size(item.Id) +
		IDMUS.Size(item.OwnerId) +
		ord.String.Size(item.SourceRef) +
		ord.String.Size(item.Title) +
		ord.String.Size(item.Transcript) +
		varint.Int.Size(int(item.Status)) +
		ord.String.Size(item.ErrorMessage) +
		raw.Float64.Size(item.DurationSeconds) +
		varint.Int64.Size(item.ViewCount) +
		varint.Int.Size(int(item.Method)) +
		raw.Float64.Size(item.TranscriptCost) +
		varint.Int64.Size(item.EmbeddingTokens) +
		raw.Float64.Size(item.EmbeddingCost) +
		ord.String.Size(item.EmbeddingModel) +
		timeSer.Size(item.InsertedAt) +
		timeSer.Size(item.UpdatedAt) +
		timeSer.Size(item.ProcessedAt) +
		segmentsSer.Size(item.Segments)
}

func (contentItemMUS) Marshal(item ContentItem, bs []byte) int {
	n := IDMUS.Marshal(item.Id, bs)
	n += IDMUS.Marshal(item.OwnerId, bs[n:])
	n += ord.String.Marshal(item.SourceRef, bs[n:])
	n += ord.String.Marshal(item.Title, bs[n:])
	n += ord.String.Marshal(item.Transcript, bs[n:])
	n += varint.Int.Marshal(int(item.Status), bs[n:])
	n += ord.String.Marshal(item.ErrorMessage, bs[n:])
	n += raw.Float64.Marshal(item.DurationSeconds, bs[n:])
	n += varint.Int64.Marshal(item.ViewCount, bs[n:])
	n += varint.Int.Marshal(int(item.Method), bs[n:])
	n += raw.Float64.Marshal(item.TranscriptCost, bs[n:])
	n += varint.Int64.Marshal(item.EmbeddingTokens, bs[n:])
	n += raw.Float64.Marshal(item.EmbeddingCost, bs[n:])
	n += ord.String.Marshal(item.EmbeddingModel, bs[n:])
	n += timeSer.Marshal(item.InsertedAt, bs[n:])
	n += timeSer.Marshal(item.UpdatedAt, bs[n:])
	n += timeSer.Marshal(item.ProcessedAt, bs[n:])
	n += segmentsSer.Marshal(item.Segments, bs[n:])
	return n
}

func (contentItemMUS) Unmarshal(bs []byte) (item ContentItem, n int, err error) {
	var n1 int
	if item.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if item.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.SourceRef, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.Transcript, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	var status int
	if status, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	item.Status = Status(status)
	n += n1
	if item.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.DurationSeconds, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.ViewCount, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	var method int
	if method, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	item.Method = TranscriptMethod(method)
	n += n1
	if item.TranscriptCost, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.EmbeddingTokens, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.EmbeddingCost, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.InsertedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.UpdatedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.ProcessedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	if item.Segments, n1, err = segmentsSer.Unmarshal(bs[n:]); err != nil {
		return item, n + n1, err
	}
	n += n1
	return item, n, nil
}

type chunkMUS struct{}

func (chunkMUS) Size(c Chunk) int {
	return IDMUS.Size(c.ContentId) +
		IDMUS.Size(c.OwnerId) +
		varint.Int.Size(c.Index) +
		ord.String.Size(c.Text) +
		raw.Float64.Size(c.StartSeconds) +
		raw.Float64.Size(c.EndSeconds) +
		varint.Int.Size(c.WordCount) +
		vectorSer.Size(c.Vector)
}

func (chunkMUS) Marshal(c Chunk, bs []byte) int {
	n := IDMUS.Marshal(c.ContentId, bs)
	n += IDMUS.Marshal(c.OwnerId, bs[n:])
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += raw.Float64.Marshal(c.StartSeconds, bs[n:])
	n += raw.Float64.Marshal(c.EndSeconds, bs[n:])
	n += varint.Int.Marshal(c.WordCount, bs[n:])
	n += vectorSer.Marshal(c.Vector, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	if c.ContentId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if c.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.StartSeconds, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.EndSeconds, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.WordCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Vector, n1, err = vectorSer.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

type pipelineEventMUS struct{}

func (pipelineEventMUS) Size(e PipelineEvent) int {
	return ord.String.Size(e.Id) +
		varint.Int.Size(int(e.Kind)) +
		IDMUS.Size(e.ContentId) +
		IDMUS.Size(e.OwnerId) +
		ord.String.Size(e.SourceRef) +
		ord.Bool.Size(e.Reprocess) +
		timeSer.Size(e.CreatedAt)
}

func (pipelineEventMUS) Marshal(e PipelineEvent, bs []byte) int {
	n := ord.String.Marshal(e.Id, bs)
	n += varint.Int.Marshal(int(e.Kind), bs[n:])
	n += IDMUS.Marshal(e.ContentId, bs[n:])
	n += IDMUS.Marshal(e.OwnerId, bs[n:])
	n += ord.String.Marshal(e.SourceRef, bs[n:])
	n += ord.Bool.Marshal(e.Reprocess, bs[n:])
	n += timeSer.Marshal(e.CreatedAt, bs[n:])
	return n
}

func (pipelineEventMUS) Unmarshal(bs []byte) (e PipelineEvent, n int, err error) {
	var n1 int
	if e.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var kind int
	if kind, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	e.Kind = EventKind(kind)
	n += n1
	if e.ContentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.SourceRef, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.Reprocess, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	if e.CreatedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return e, n + n1, err
	}
	n += n1
	return e, n, nil
}

type usageRecordMUS struct{}

func (usageRecordMUS) Size(u UsageRecord) int {
	return IDMUS.Size(u.OwnerId) +
		ord.String.Size(u.Day) +
		ord.String.Size(u.Operation) +
		varint.Int64.Size(u.Tokens) +
		raw.Float64.Size(u.Cost) +
		timeSer.Size(u.UpdatedAt)
}

func (usageRecordMUS) Marshal(u UsageRecord, bs []byte) int {
	n := IDMUS.Marshal(u.OwnerId, bs)
	n += ord.String.Marshal(u.Day, bs[n:])
	n += ord.String.Marshal(u.Operation, bs[n:])
	n += varint.Int64.Marshal(u.Tokens, bs[n:])
	n += raw.Float64.Marshal(u.Cost, bs[n:])
	n += timeSer.Marshal(u.UpdatedAt, bs[n:])
	return n
}

func (usageRecordMUS) Unmarshal(bs []byte) (u UsageRecord, n int, err error) {
	var n1 int
	if u.OwnerId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if u.Day, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return u, n + n1, err
	}
	n += n1
	if u.Operation, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return u, n + n1, err
	}
	n += n1
	if u.Tokens, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return u, n + n1, err
	}
	n += n1
	if u.Cost, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return u, n + n1, err
	}
	n += n1
	if u.UpdatedAt, n1, err = timeSer.Unmarshal(bs[n:]); err != nil {
		return u, n + n1, err
	}
	n += n1
	return u, n, nil
}

type searchResultMUS struct{}

func (searchResultMUS) Size(r SearchResult) int {
	return ChunkMUS.Size(r.Chunk) +
		raw.Float32.Size(r.Score) +
		raw.Float32.Size(r.Similarity)
}

func (searchResultMUS) Marshal(r SearchResult, bs []byte) int {
	n := ChunkMUS.Marshal(r.Chunk, bs)
	n += raw.Float32.Marshal(r.Score, bs[n:])
	n += raw.Float32.Marshal(r.Similarity, bs[n:])
	return n
}

func (searchResultMUS) Unmarshal(bs []byte) (r SearchResult, n int, err error) {
	var n1 int
	if r.Chunk, n, err = ChunkMUS.Unmarshal(bs); err != nil {
		return
	}
	if r.Score, n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Similarity, n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	return r, n, nil
}
