package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxKeyLength bounds keys produced by NewHashingKeySerializer when no
// explicit limit is configured.
const DefaultMaxKeyLength = 250

type hashingKeySerializer struct {
	inner  KeySerializer
	maxLen int
}

// NewHashingKeySerializer wraps inner so that keys longer than maxLen are
// replaced by "<method>::xxh:<hex>". Short keys pass through unchanged, which
// keeps them readable in logs. A non-positive maxLen uses DefaultMaxKeyLength.
func NewHashingKeySerializer(inner KeySerializer, maxLen int) KeySerializer {
	if inner == nil {
		inner = NewDefaultKeySerializer()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxKeyLength
	}
	return &hashingKeySerializer{inner: inner, maxLen: maxLen}
}

func (h *hashingKeySerializer) SerializeKey(method string, args ...any) string {
	key := h.inner.SerializeKey(method, args...)
	if len(key) <= h.maxLen {
		return key
	}

	var b strings.Builder
	b.Grow(len(method) + len(KeySeparator) + 20)
	b.WriteString(method)
	b.WriteString(KeySeparator)
	b.WriteString("xxh:")
	b.WriteString(strconv.FormatUint(xxhash.Sum64String(key), 16))
	return b.String()
}
