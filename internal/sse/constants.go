package sse

import "time"

const (
	// BufferSize is the buffer size for SSE message channels
	BufferSize = 64

	// HeartbeatInterval keeps idle connections open through proxies
	HeartbeatInterval = 25 * time.Second
)
