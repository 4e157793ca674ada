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


package storage

import (
	"github.com/calyptra/lectern/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalContentItem serializes a ContentItem to bytes.
func MarshalContentItem(item *core.ContentItem) []byte {
	buf := make([]byte, core.ContentItemMUS.Size(*item))
	core.ContentItemMUS.Marshal(*item, buf)
	return buf
}

// UnmarshalContentItem deserializes a ContentItem from bytes.
func UnmarshalContentItem(data []byte) (*core.ContentItem, error) {
	item, _, err := core.ContentItemMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalPipelineEvent serializes a PipelineEvent to bytes.
func MarshalPipelineEvent(event *core.PipelineEvent) []byte {
	buf := make([]byte, core.PipelineEventMUS.Size(*event))
	core.PipelineEventMUS.Marshal(*event, buf)
	return buf
}

// UnmarshalPipelineEvent deserializes a PipelineEvent from bytes.
func UnmarshalPipelineEvent(data []byte) (*core.PipelineEvent, error) {
	event, _, err := core.PipelineEventMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// MarshalUsageRecord serializes a UsageRecord to bytes.
func MarshalUsageRecord(record *core.UsageRecord) []byte {
	buf := make([]byte, core.UsageRecordMUS.Size(*record))
	core.UsageRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalUsageRecord deserializes a UsageRecord from bytes.
func UnmarshalUsageRecord(data []byte) (*core.UsageRecord, error) {
	record, _, err := core.UsageRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalSearchResults serializes a search result list for caching.
func MarshalSearchResults(results []core.SearchResult) []byte {
	size := 0
	for i := range results {
		size += core.SearchResultMUS.Size(results[i])
	}
	buf := make([]byte, size)
	n := 0
	for i := range results {
		n += core.SearchResultMUS.Marshal(results[i], buf[n:])
	}
	return buf
}

// UnmarshalSearchResults deserializes a cached search result list.
func UnmarshalSearchResults(data []byte) ([]core.SearchResult, error) {
	results := []core.SearchResult{}
	for len(data) > 0 {
		result, n, err := core.SearchResultMUS.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		data = data[n:]
	}
	return results, nil
}
