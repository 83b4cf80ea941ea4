package ports

// SerialLink is the byte-level connection to the modem.
//
// The receiver is the only caller of Read and the transmitter is the only
// caller of Write, so implementations do not need to serialize the two.
type SerialLink interface {
	// Read waits a bounded time for data. It returns (0, nil) when the wait
	// expires without data.
	Read(p []byte) (int, error)

	// Write sends p to the modem.
	Write(p []byte) (int, error)

	// Close releases the underlying port and unblocks a pending Read.
	Close() error
}
