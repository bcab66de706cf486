package chathub

// Client is one connected attendant. The Manager keeps at most one per attendant.
type Client interface {
	// GetUserID returns the attendant id the client was authenticated as.
	GetUserID() string
	// Console returns the console the client drives.
	Console() *Console
	// Run starts the client's goroutines.
	Run()
	// Close stops the client. It must be safe to call more than once.
	Close()
}
