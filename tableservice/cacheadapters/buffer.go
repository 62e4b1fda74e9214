package cacheadapters

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

var ErrInvalidBufferSize = errors.New("buffer size must be positive")

/***** SyncBuffer *****/

// SyncBuffer is an unbounded Buffer safe for concurrent use.
type SyncBuffer struct {
	entries *xsync.MapOf[string, any]
}

func NewSyncBuffer() *SyncBuffer {
	return &SyncBuffer{entries: xsync.NewMapOf[string, any]()}
}

func (b *SyncBuffer) Get(key string) (any, bool) {
	return b.entries.Load(key)
}

func (b *SyncBuffer) Set(key string, value any) {
	b.entries.Store(key, value)
}

func (b *SyncBuffer) Clear() {
	b.entries.Clear()
}

func (b *SyncBuffer) Len() int {
	return b.entries.Size()
}

/***** LRUBuffer *****/

// LRUBuffer is a Buffer safe for concurrent use that evicts the least recently used entry once full.
type LRUBuffer struct {
	entries *lru.Cache[string, any]
}

// NewLRUBuffer creates a buffer holding at most size entries.
func NewLRUBuffer(size int) (*LRUBuffer, error) {
	if size <= 0 {
		return nil, ErrInvalidBufferSize
	}

	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}

	return &LRUBuffer{entries: entries}, nil
}

func (b *LRUBuffer) Get(key string) (any, bool) {
	return b.entries.Get(key)
}

func (b *LRUBuffer) Set(key string, value any) {
	b.entries.Add(key, value)
}

func (b *LRUBuffer) Clear() {
	b.entries.Purge()
}

func (b *LRUBuffer) Len() int {
	return b.entries.Len()
}

var _ tableservice.Buffer = (*SyncBuffer)(nil)
var _ tableservice.Buffer = (*LRUBuffer)(nil)
