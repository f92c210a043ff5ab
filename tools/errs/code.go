package errs

// Engine failure taxonomy. Every failure is scoped to the connection
// that caused it; none of these are fatal to the process.
var (
	// ErrAuthentication : bad or missing credential, connection rejected
	// before any registry mutation.
	ErrAuthentication = NewCodeError(1401, "authentication error")

	// ErrAuthorization : the user is not a member of the target chat.
	// Message text mirrors what clients already expect.
	ErrAuthorization = NewCodeError(1403, "chat not found")

	// ErrNotFound : unknown message or chat id.
	ErrNotFound = NewCodeError(1404, "message not found")

	// ErrPersistence : storage unavailable, nothing was saved or sent.
	ErrPersistence = NewCodeError(1500, "failed to send message")

	// ErrTransport : a peer connection cannot accept events and is
	// dropped; the broadcast to the rest proceeds.
	ErrTransport = NewCodeError(1408, "connection too slow")

	// ErrEmptyMessage : content empty after trimming and no media.
	ErrEmptyMessage = NewCodeError(1400, "message content required")
)
