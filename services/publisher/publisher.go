package publisher

// Publisher pushes crawl results to downstream consumers.
type Publisher interface {
	// Publish publishes a message under a key to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
