package cache

import (
	"context"
	"errors"
)

// Partition names. The cache manages exactly these two partitions.
const (
	ResourceDocsPartition = "resource-docs-cache"
	MessageDocsPartition  = "message-docs-cache"

	// RootKey is the single logical key a partition stores its snapshot under.
	RootKey = "/"
)

var (
	ErrUnknownPartition = errors.New("unknown cache partition")
	ErrStorageClosed    = errors.New("cache storage is closed")
)

// Partitions lists the partition names in startup order.
func Partitions() []string {
	return []string{ResourceDocsPartition, MessageDocsPartition}
}

// IsKnownPartition reports whether name is one of the managed partitions.
func IsKnownPartition(name string) bool {
	return name == ResourceDocsPartition || name == MessageDocsPartition
}

// Reader is the read side of a partition, used by the synchronizer at startup.
type Reader interface {
	Name() string
	// Match returns a copy of the payload stored under key.
	// found is false when nothing was stored yet.
	Match(ctx context.Context, key string) (payload []byte, found bool, err error)
}

// Writer is the write side of a partition, used only by the refresh path.
type Writer interface {
	Name() string
	// Put replaces the payload stored under key.
	Put(ctx context.Context, key string, payload []byte) error
}

// Partition is one durable, independently addressable cache namespace.
type Partition interface {
	Reader
	Writer
}

// Storage opens partitions of a durable backend.
type Storage interface {
	Open(ctx context.Context, name string) (Partition, error)
	Close() error
}
