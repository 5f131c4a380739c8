package sendclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// authKeyLen is the HMAC-SHA256 block size. Both derivation branches
	// must produce a key of this length to stay wire-compatible with the
	// upstream service.
	authKeyLen = 64
	// metadataKeyLen is the AES-128-GCM key size used for the one-shot
	// metadata record.
	metadataKeyLen = 16
	// passwordIterations is the fixed PBKDF2 iteration count of the
	// protocol. Not tunable: changing it changes the derived key.
	passwordIterations = 100
	// protocolTag prefixes every Authorization header value.
	protocolTag = "send-v1"
)

// HKDF info strings providing domain separation between the request
// authentication key and the metadata encryption key.
var (
	infoAuthentication = []byte("authentication")
	infoMetadata       = []byte("metadata")
)

// hkdfDerive expands the locator secret into a purpose-specific key.
func hkdfDerive(secret, salt, info []byte, length int) ([]byte, error) {
	key := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}

// DeriveAuthKey computes the request authentication key for a download.
// When the link is password protected the key is stretched from the password
// with the canonical URL as salt; otherwise it is derived from the fragment
// secret alone.
func DeriveAuthKey(locator *ShareLocator, password string) ([]byte, error) {
	if password != "" {
		return pbkdf2.Key([]byte(password), []byte(locator.CanonicalURL()),
			passwordIterations, authKeyLen, sha256.New), nil
	}
	return hkdfDerive(locator.Secret, nil, infoAuthentication, authKeyLen)
}

// deriveMetadataKey computes the AES-128-GCM key for the metadata record.
func deriveMetadataKey(locator *ShareLocator) ([]byte, error) {
	return hkdfDerive(locator.Secret, nil, infoMetadata, metadataKeyLen)
}

// BuildAuthHeader computes the Authorization header value for one
// authenticated request: a keyed MAC over the base64-decoded server nonce,
// base64-encoded and prefixed with the protocol version tag. The nonce is
// single use; the caller must rebuild the header with the fresh nonce issued
// by each authenticated response.
func BuildAuthHeader(authKey []byte, nonce string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", fmt.Errorf("%w: nonce is not valid base64: %v", ErrProtocolMismatch, err)
	}
	mac := hmac.New(sha256.New, authKey)
	mac.Write(raw)
	return protocolTag + " " + base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
