package sendclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShareURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantBase   string
		wantFileID string
		wantSecret string
		wantErr    error
	}{
		{
			name:       "valid share URL",
			url:        "https://send.example.com/download/abc123/#SGVsbG8",
			wantBase:   "https://send.example.com",
			wantFileID: "abc123",
			wantSecret: "Hello",
		},
		{
			name:       "shell-escaped backslashes stripped",
			url:        `https://send.example.com/download/abc123/\#c2VjcmV0`,
			wantBase:   "https://send.example.com",
			wantFileID: "abc123",
			wantSecret: "secret",
		},
		{
			name:       "padded fragment accepted",
			url:        "https://send.example.com/download/abc123/#SGVsbG8=",
			wantBase:   "https://send.example.com",
			wantFileID: "abc123",
			wantSecret: "Hello",
		},
		{
			name:       "extra path prefix before download segment",
			url:        "https://send.example.com/send/download/abc123/#SGVsbG8",
			wantBase:   "https://send.example.com",
			wantFileID: "abc123",
			wantSecret: "Hello",
		},
		{
			name:       "surrounding whitespace trimmed",
			url:        "  https://send.example.com/download/abc123/#SGVsbG8\n",
			wantBase:   "https://send.example.com",
			wantFileID: "abc123",
			wantSecret: "Hello",
		},
		{
			name:    "missing fragment secret",
			url:     "https://send.example.com/download/abc123/",
			wantErr: ErrMalformedURL,
		},
		{
			name:    "missing file identifier",
			url:     "https://send.example.com/download/#SGVsbG8",
			wantErr: ErrMalformedURL,
		},
		{
			name:    "no download segment",
			url:     "https://send.example.com/files/abc123/#SGVsbG8",
			wantErr: ErrMalformedURL,
		},
		{
			name:    "missing scheme",
			url:     "send.example.com/download/abc123/#SGVsbG8",
			wantErr: ErrMalformedURL,
		},
		{
			name:    "fragment is not base64url",
			url:     "https://send.example.com/download/abc123/#!!!",
			wantErr: ErrMalformedURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locator, err := ParseShareURL(tt.url)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, locator.BaseURL)
			assert.Equal(t, tt.wantFileID, locator.FileID)
			assert.Equal(t, tt.wantSecret, string(locator.Secret))
		})
	}
}

func TestShareLocatorURLs(t *testing.T) {
	locator, err := ParseShareURL("https://send.example.com/download/abc123/#SGVsbG8")
	require.NoError(t, err)

	assert.Equal(t, "https://send.example.com/download/abc123/", locator.CanonicalURL())
	assert.Equal(t, locator.CanonicalURL(), locator.DownloadPageURL())
	assert.Equal(t, "https://send.example.com/api/metadata/abc123", locator.MetadataURL())
	assert.Equal(t, "https://send.example.com/api/download/abc123", locator.BlobURL())
}
