package sendclient

import "fmt"

// Error types for the share-link protocol. Transport failures are kept
// distinct from protocol and decryption failures so callers can decide
// retryability.
var (
	ErrMalformedURL     = fmt.Errorf("malformed share URL")
	ErrNotFound         = fmt.Errorf("share link not found or expired")
	ErrProtocolMismatch = fmt.Errorf("unexpected server response shape")
	ErrDecryptionFailed = fmt.Errorf("decryption failed")
	ErrPasswordRequired = fmt.Errorf("share link requires a password")
	ErrTransport        = fmt.Errorf("transport failure")
)
