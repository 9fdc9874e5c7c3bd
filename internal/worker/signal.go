package worker

import "github.com/bassista/go_obpdocs/internal/cache"

// Signal announces that a fresh snapshot of one partition is available.
type Signal int

const (
	SignalUpdateResourceDocs Signal = iota + 1
	SignalUpdateMessageDocs
)

func (s Signal) String() string {
	switch s {
	case SignalUpdateResourceDocs:
		return "update-resource-docs"
	case SignalUpdateMessageDocs:
		return "update-message-docs"
	default:
		return "unknown"
	}
}

// Partition returns the cache partition the signal refers to, or "" for an
// unknown signal.
func (s Signal) Partition() string {
	switch s {
	case SignalUpdateResourceDocs:
		return cache.ResourceDocsPartition
	case SignalUpdateMessageDocs:
		return cache.MessageDocsPartition
	default:
		return ""
	}
}

// SignalFor returns the signal emitted after refreshing partition.
func SignalFor(partition string) (Signal, bool) {
	switch partition {
	case cache.ResourceDocsPartition:
		return SignalUpdateResourceDocs, true
	case cache.MessageDocsPartition:
		return SignalUpdateMessageDocs, true
	default:
		return 0, false
	}
}

// Message is what the worker sends to the foreground. Payload is the
// freshly fetched snapshot; ownership passes to the receiver.
type Message struct {
	Signal  Signal
	Payload []byte
}
