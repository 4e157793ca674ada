package badger

import (
	"encoding/binary"
	"time"

	"github.com/calyptra/lectern/core"
)

// Key prefixes for different data types
const (
	contentPrefix      = "con"
	contentOwnerPrefix = "cono"
	chunkPrefix        = "chk"
	cachePrefix        = "cac"
	queueReadyPrefix   = "evt"
	queueClaimedPrefix = "evi"
	queueDeadPrefix    = "dlq"
	usagePrefix        = "usg"
	viewPrefix         = "viw"
)

func appendID(buf []byte, id core.ID) []byte {
	var b [8]byte
	// BigEndian so lexicographic key order matches numeric order
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return append(buf, b[:]...)
}

// makeContentKey generates a key for a content item by ID.
func makeContentKey(id core.ID) []byte {
	return appendID([]byte(contentPrefix+":"), id)
}

// makeContentOwnerKey generates a composite key for the owner index.
// Format: prefix:owner:id
func makeContentOwnerKey(owner, id core.ID) []byte {
	buf := appendID([]byte(contentOwnerPrefix+":"), owner)
	return appendID(buf, id)
}

// makePartialContentOwnerKey generates a prefix for owner queries.
func makePartialContentOwnerKey(owner core.ID) []byte {
	return appendID([]byte(contentOwnerPrefix+":"), owner)
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:contentId:index, index in BigEndian so iteration yields
// chunks in index order.
func makeChunkKey(contentId core.ID, index int) []byte {
	buf := appendID([]byte(chunkPrefix+":"), contentId)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(index))
	return append(buf, b[:]...)
}

// makePartialChunkKey generates a prefix for one content item's chunks.
func makePartialChunkKey(contentId core.ID) []byte {
	return appendID([]byte(chunkPrefix+":"), contentId)
}

// makeCacheKey namespaces a caller-supplied cache key.
func makeCacheKey(key string) []byte {
	return []byte(cachePrefix + ":" + key)
}

// makeQueueReadyKey generates a key for a ready event.
// Format: prefix:readyAt:eventId, readyAt in BigEndian micros so iteration
// yields the earliest-ready event first.
func makeQueueReadyKey(readyAt time.Time, eventId string) []byte {
	buf := []byte(queueReadyPrefix + ":")
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(readyAt.UnixMicro()))
	buf = append(buf, b[:]...)
	return append(buf, []byte(eventId)...)
}

// queueReadyAt extracts the ready time from a ready-queue key.
func queueReadyAt(key []byte) time.Time {
	offset := len(queueReadyPrefix) + 1
	micros := binary.BigEndian.Uint64(key[offset : offset+8])
	return time.UnixMicro(int64(micros))
}

// makeQueueClaimedKey generates a key for a claimed (in-flight) event.
func makeQueueClaimedKey(eventId string) []byte {
	return []byte(queueClaimedPrefix + ":" + eventId)
}

// makeQueueDeadKey generates a key for a dead-lettered event.
func makeQueueDeadKey(eventId string) []byte {
	return []byte(queueDeadPrefix + ":" + eventId)
}

// makeUsageKey generates a composite key for a usage bucket.
/// Format: prefix:owner:day:operation
func makeUsageKey(owner core.ID, day, operation string) []byte {
	buf := appendID([]byte(usagePrefix+":"), owner)
	buf = append(buf, ':')
	buf = append(buf, []byte(day)...)
	buf = append(buf, ':')
	return append(buf, []byte(operation)...)
}

// makePartialUsageKey generates a prefix for one owner and day.
func makePartialUsageKey(owner core.ID, day string) []byte {
	buf := appendID([]byte(usagePrefix+":"), owner)
	buf = append(buf, ':')
	buf = append(buf, []byte(day)...)
	return append(buf, ':')
}

// makeViewKey generates a composite key for the view history index.
/// Format: prefix:owner:contentId
func makeViewKey(owner, contentId core.ID) []byte {
	buf := appendID([]byte(viewPrefix+":"), owner)
	return appendID(buf, contentId)
}

// makePartialViewKey generates a prefix for one owner's view history.
func makePartialViewKey(owner core.ID) []byte {
	return appendID([]byte(viewPrefix+":"), owner)
}
