package sendclient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// MockShareServer is an in-process share-link service implementing the
// download page, metadata and blob endpoints with real encryption and nonce
// chaining. Round-trip tests run the full protocol against it; it also
// serves as a local fixture server for manual runs.
type MockShareServer struct {
	server *httptest.Server

	mu    sync.Mutex
	files map[string]*mockShareFile
}

type mockShareFile struct {
	secret   []byte
	authKey  []byte
	password bool
	nonce    string
	metadata []byte // encrypted descriptor
	blob     []byte // encrypted content body
}

// NewMockShareServer starts the mock service. Callers must Close it.
func NewMockShareServer() *MockShareServer {
	s := &MockShareServer{files: make(map[string]*mockShareFile)}

	router := mux.NewRouter()
	router.HandleFunc("/download/{id}/", s.handleDownloadPage).Methods(http.MethodGet)
	router.HandleFunc("/api/metadata/{id}", s.handleMetadata).Methods(http.MethodGet)
	router.HandleFunc("/api/download/{id}", s.handleBlob).Methods(http.MethodGet)

	s.server = httptest.NewServer(router)
	return s
}

// Close shuts down the underlying HTTP server.
func (s *MockShareServer) Close() {
	s.server.Close()
}

// URL returns the base URL of the mock service.
func (s *MockShareServer) URL() string {
	return s.server.URL
}

// AddFile uploads content under the given file id and returns the share URL
// a user would paste. An empty password leaves the link unprotected.
func (s *MockShareServer) AddFile(id, name string, content []byte, password string) (string, error) {
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}

	shareURL := fmt.Sprintf("%s/download/%s/#%s", s.server.URL, id,
		base64.RawURLEncoding.EncodeToString(secret))
	locator, err := ParseShareURL(shareURL)
	if err != nil {
		return "", err
	}

	authKey, err := DeriveAuthKey(locator, password)
	if err != nil {
		return "", err
	}

	metadata, err := encryptMockMetadata(locator, name, int64(len(content)))
	if err != nil {
		return "", err
	}

	salt := make([]byte, eceSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	blob, err := EncryptStream(secret, salt, DefaultRecordSize, content)
	if err != nil {
		return "", err
	}

	nonce, err := freshNonce()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.files[id] = &mockShareFile{
		secret:   secret,
		authKey:  authKey,
		password: password != "",
		nonce:    nonce,
		metadata: metadata,
		blob:     blob,
	}
	s.mu.Unlock()

	return shareURL, nil
}

func (s *MockShareServer) handleDownloadPage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	file := s.files[id]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html")
	if file == nil {
		fmt.Fprint(w, `<html><body><script>var downloadMetadata = {"status": 404};</script></body></html>`)
		return
	}

	page, _ := json.Marshal(downloadPage{Status: http.StatusOK, Nonce: file.nonce, Pwd: file.password})
	fmt.Fprintf(w, `<html><body><script>var downloadMetadata = %s;</script></body></html>`, page)
}

func (s *MockShareServer) handleMetadata(w http.ResponseWriter, r *http.Request) {
	file, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, base64.StdEncoding.EncodeToString(file.metadata))
}

func (s *MockShareServer) handleBlob(w http.ResponseWriter, r *http.Request) {
	file, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(file.blob)
}

// authenticate verifies the Authorization header against the file's current
// nonce, then rotates the nonce and issues the fresh one on the response.
func (s *MockShareServer) authenticate(w http.ResponseWriter, r *http.Request) (*mockShareFile, bool) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	file := s.files[id]
	if file == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return nil, false
	}

	expected, err := BuildAuthHeader(file.authKey, file.nonce)
	if err != nil || !hmac.Equal([]byte(r.Header.Get("Authorization")), []byte(expected)) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	next, err := freshNonce()
	if err != nil {
		http.Error(w, "nonce generation failed", http.StatusInternalServerError)
		return nil, false
	}
	file.nonce = next
	w.Header().Set(authHeaderName, protocolTag+" "+next)
	return file, true
}

// encryptMockMetadata seals the descriptor the way the upload side does:
// AES-128-GCM under the metadata key with an all-zero nonce.
func encryptMockMetadata(locator *ShareLocator, name string, size int64) ([]byte, error) {
	descriptor, err := json.Marshal(Metadata{
		Name: name,
		Type: "application/octet-stream",
		Size: size,
	})
	if err != nil {
		return nil, err
	}

	key, err := deriveMetadataKey(locator)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, make([]byte, gcm.NonceSize()), descriptor, nil), nil
}

func freshNonce() (string, error) {
	raw := make([]byte, sha256.Size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
