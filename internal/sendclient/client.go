package sendclient

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Default timeout for HTTP requests
const defaultHTTPTimeout = 120 * time.Second

// defaultUserAgent identifies the client to the share service.
const defaultUserAgent = "bugreport-ops/1.0"

// authHeaderName carries the fresh nonce issued by each authenticated
// response.
const authHeaderName = "WWW-Authenticate"

// downloadMetadataRe matches the JSON blob the download page embeds for its
// own script. It is the only machine-readable carrier of the initial nonce.
var downloadMetadataRe = regexp.MustCompile(`downloadMetadata\s*=\s*(\{[^}]*\})`)

// Options holds configuration for the protocol client
type Options struct {
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// UserAgent is sent on every request
	UserAgent string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		Timeout:   defaultHTTPTimeout,
		UserAgent: defaultUserAgent,
	}
}

// Session is the explicit per-download request-chaining state: the derived
// authentication key and the most recently issued nonce. Each authenticated
// call consumes the current nonce and returns a session carrying the next
// one; there is no replay.
type Session struct {
	AuthKey []byte
	Nonce   string
}

// NonceInfo is the result of the unauthenticated download-page fetch.
type NonceInfo struct {
	// Nonce seeds the first authenticated request
	Nonce string
	// RequiresPassword reports whether the uploader set a password
	RequiresPassword bool
}

// Metadata is the decrypted JSON descriptor of the remote file.
type Metadata struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Size     int64           `json:"size"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
}

// Client retrieves and decrypts one remote object per Download call. It
// keeps no state between downloads; the nonce chain lives in the Session
// value threaded through the authenticated calls.
type Client struct {
	opts *Options
	http *http.Client
}

// New creates a protocol client. A nil httpClient gets a default client
// with the configured timeout; tests inject their own transport.
func New(opts *Options, httpClient *http.Client) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: httpClient}
}

// downloadPage is the embedded JSON blob on the download page.
type downloadPage struct {
	Status int    `json:"status"`
	Nonce  string `json:"nonce"`
	Pwd    bool   `json:"pwd"`
}

// FetchNonce requests the HTML download page and extracts the embedded
// nonce and password flag.
func (c *Client) FetchNonce(ctx context.Context, locator *ShareLocator) (*NonceInfo, error) {
	body, _, err := c.get(ctx, locator.DownloadPageURL(), "")
	if err != nil {
		return nil, err
	}

	match := downloadMetadataRe.FindSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("%w: download page has no embedded metadata", ErrProtocolMismatch)
	}

	var page downloadPage
	if err := json.Unmarshal(match[1], &page); err != nil {
		return nil, fmt.Errorf("%w: embedded metadata is not valid JSON: %v", ErrProtocolMismatch, err)
	}
	if page.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: download page reports expired link", ErrNotFound)
	}
	if page.Nonce == "" {
		return nil, fmt.Errorf("%w: download page carries no nonce", ErrProtocolMismatch)
	}

	return &NonceInfo{Nonce: page.Nonce, RequiresPassword: page.Pwd}, nil
}

// FetchMetadata performs the authenticated metadata request and decrypts
// the descriptor. The returned session carries the nonce for the blob
// download.
func (c *Client) FetchMetadata(ctx context.Context, locator *ShareLocator, sess Session) (*Metadata, Session, error) {
	header, err := BuildAuthHeader(sess.AuthKey, sess.Nonce)
	if err != nil {
		return nil, sess, err
	}

	body, resp, err := c.get(ctx, locator.MetadataURL(), header)
	if err != nil {
		return nil, sess, err
	}
	next, err := nextSession(sess, resp)
	if err != nil {
		return nil, sess, err
	}

	ciphertext, err := decodeBase64(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, sess, fmt.Errorf("%w: metadata body is not valid base64: %v", ErrProtocolMismatch, err)
	}

	plaintext, err := decryptMetadata(locator, ciphertext)
	if err != nil {
		return nil, sess, err
	}

	var md Metadata
	if err := json.Unmarshal(plaintext, &md); err != nil {
		return nil, sess, fmt.Errorf("%w: metadata is not valid JSON: %v", ErrProtocolMismatch, err)
	}
	return &md, next, nil
}

// DownloadAndDecrypt performs the authenticated blob request and decrypts
// the streamed content body.
func (c *Client) DownloadAndDecrypt(ctx context.Context, locator *ShareLocator, sess Session) ([]byte, Session, error) {
	header, err := BuildAuthHeader(sess.AuthKey, sess.Nonce)
	if err != nil {
		return nil, sess, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator.BlobURL(), nil)
	if err != nil {
		return nil, sess, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Authorization", header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sess, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, sess, err
	}

	// The blob endpoint is the last call in the chain; a missing follow-up
	// nonce is tolerated.
	next := sess
	next.Nonce = strings.TrimPrefix(resp.Header.Get(authHeaderName), protocolTag+" ")

	data, err := DecryptStream(locator.Secret, resp.Body)
	if err != nil {
		return nil, sess, err
	}
	return data, next, nil
}

// Download runs the protocol end to end: parse the share URL, fetch the
// initial nonce, derive the auth key, fetch and decrypt the metadata, then
// fetch and decrypt the blob. Network calls are strictly sequential because
// each consumes the nonce issued by the previous response.
func (c *Client) Download(ctx context.Context, shareURL, password string) ([]byte, *Metadata, error) {
	locator, err := ParseShareURL(shareURL)
	if err != nil {
		return nil, nil, err
	}

	info, err := c.FetchNonce(ctx, locator)
	if err != nil {
		return nil, nil, err
	}
	if info.RequiresPassword && password == "" {
		return nil, nil, ErrPasswordRequired
	}
	if !info.RequiresPassword {
		password = ""
	}

	authKey, err := DeriveAuthKey(locator, password)
	if err != nil {
		return nil, nil, err
	}
	sess := Session{AuthKey: authKey, Nonce: info.Nonce}

	md, sess, err := c.FetchMetadata(ctx, locator, sess)
	if err != nil {
		return nil, nil, err
	}

	data, _, err := c.DownloadAndDecrypt(ctx, locator, sess)
	if err != nil {
		return nil, nil, err
	}
	return data, md, nil
}

// get performs one GET, optionally authenticated, and returns the body.
func (c *Client) get(ctx context.Context, url, authHeader string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading response body: %v", ErrTransport, err)
	}
	return body, resp, nil
}

// checkStatus maps HTTP status codes onto the protocol error taxonomy.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: HTTP %s", ErrNotFound, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: request authentication rejected", ErrProtocolMismatch)
	default:
		return fmt.Errorf("%w: HTTP %s", ErrTransport, resp.Status)
	}
}

// nextSession advances the nonce chain from an authenticated response.
func nextSession(sess Session, resp *http.Response) (Session, error) {
	value := resp.Header.Get(authHeaderName)
	if !strings.HasPrefix(value, protocolTag+" ") {
		return sess, fmt.Errorf("%w: response carries no follow-up nonce", ErrProtocolMismatch)
	}
	next := sess
	next.Nonce = strings.TrimPrefix(value, protocolTag+" ")
	return next, nil
}

// decryptMetadata opens the one-shot metadata record: AES-128-GCM under the
// metadata key with a fixed all-zero nonce. The record is one-shot and keyed
// per download, so it carries no random IV.
func decryptMetadata(locator *ShareLocator, ciphertext []byte) ([]byte, error) {
	key, err := deriveMetadataKey(locator)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := gcm.Open(nil, make([]byte, gcm.NonceSize()), ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata auth tag mismatch", ErrDecryptionFailed)
	}
	return plaintext, nil
}

// decodeBase64 accepts standard or URL-safe alphabets with or without
// padding; uploaders are inconsistent about which they emit.
func decodeBase64(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "-", "+"), "_", "/")
	s = strings.TrimRight(s, "=")
	return base64.RawStdEncoding.DecodeString(s)
}
