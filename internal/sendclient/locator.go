// Package sendclient implements the encrypted share-link download protocol:
// URL parsing, nonce-chained request authentication, AEAD metadata
// decryption, and streamed content decryption.
package sendclient

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ShareLocator is the parsed form of a share URL. The Secret carried in the
// URL fragment is the root key material for all downstream derivations. A
// locator is immutable and scoped to a single download.
type ShareLocator struct {
	// BaseURL is the scheme and host of the share service
	BaseURL string
	// FileID is the path-embedded file identifier
	FileID string
	// Secret is the base64url-decoded fragment secret
	Secret []byte
}

// ParseShareURL extracts the base URL, file identifier and fragment secret
// from a share URL of the form https://host/download/{fileId}/#{secret}.
// Shell-escape backslashes are stripped before parsing so that URLs pasted
// from a terminal resolve to the same canonical form the uploader used.
func ParseShareURL(shareURL string) (*ShareLocator, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(shareURL), `\`, "")

	u, err := url.Parse(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrMalformedURL)
	}

	fileID := ""
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "download" && i+1 < len(segments) && segments[i+1] != "" {
			fileID = segments[i+1]
			break
		}
	}
	if fileID == "" {
		return nil, fmt.Errorf("%w: missing file identifier segment", ErrMalformedURL)
	}

	fragment := strings.TrimRight(u.Fragment, "=")
	if fragment == "" {
		return nil, fmt.Errorf("%w: missing fragment secret", ErrMalformedURL)
	}

	secret, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid fragment secret: %v", ErrMalformedURL, err)
	}

	return &ShareLocator{
		BaseURL: u.Scheme + "://" + u.Host,
		FileID:  fileID,
		Secret:  secret,
	}, nil
}

// CanonicalURL returns the normalized download URL without the fragment
// secret. It is the salt for the password key derivation, so its exact shape
// is part of the protocol.
func (l *ShareLocator) CanonicalURL() string {
	return fmt.Sprintf("%s/download/%s/", l.BaseURL, l.FileID)
}

// DownloadPageURL returns the URL of the HTML download page.
func (l *ShareLocator) DownloadPageURL() string {
	return l.CanonicalURL()
}

// MetadataURL returns the authenticated metadata endpoint URL.
func (l *ShareLocator) MetadataURL() string {
	return fmt.Sprintf("%s/api/metadata/%s", l.BaseURL, l.FileID)
}

// BlobURL returns the authenticated encrypted blob endpoint URL.
func (l *ShareLocator) BlobURL() string {
	return fmt.Sprintf("%s/api/download/%s", l.BaseURL, l.FileID)
}
