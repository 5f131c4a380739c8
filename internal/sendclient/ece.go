package sendclient

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
)

// Streamed content framing: the body is a header followed by fixed-size
// authenticated records, each decrypted independently with a per-record
// nonce derived from the header salt and a big-endian sequence counter.
//
//	[salt:16][recordSize:u32 BE][keyIdLen:u8][keyId:keyIdLen] [record]...
const (
	eceSaltLen  = 16
	eceTagLen   = 16
	eceKeyLen   = 16
	eceNonceLen = 12

	// minRecordSize is the smallest record that can hold an auth tag and a
	// padding delimiter.
	minRecordSize = eceTagLen + 2
	// maxRecordSize bounds per-record allocation against a hostile header.
	maxRecordSize = 8 * 1024 * 1024

	// DefaultRecordSize is the record size the reference uploader writes.
	DefaultRecordSize = 64 * 1024
)

// Padding delimiters. Every decrypted record carries exactly one delimiter
// after its data; zero bytes around it are padding.
const (
	recordDelimiterMore  = 0x02
	recordDelimiterFinal = 0x01
)

var (
	infoContentKey = []byte("Content-Encoding: aes128gcm\x00")
	infoNonceBase  = []byte("Content-Encoding: nonce\x00")
)

// DecryptReader decrypts a streamed-AEAD content body one record at a time.
// It never holds more than one ciphertext record and its plaintext in
// memory, so arbitrarily large blobs decrypt in bounded space.
type DecryptReader struct {
	src        *bufio.Reader
	gcm        cipher.AEAD
	nonceBase  []byte
	recordSize int
	seq        uint32
	record     []byte
	plain      []byte
	done       bool
	err        error
}

// NewDecryptReader parses the framing header from src and prepares record
// decryption keyed from the locator secret.
func NewDecryptReader(secret []byte, src io.Reader) (*DecryptReader, error) {
	br := bufio.NewReader(src)

	header := make([]byte, eceSaltLen+4+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: truncated content header: %v", ErrDecryptionFailed, err)
	}
	salt := header[:eceSaltLen]
	recordSize := binary.BigEndian.Uint32(header[eceSaltLen : eceSaltLen+4])
	keyIDLen := int64(header[eceSaltLen+4])
	if keyIDLen > 0 {
		if _, err := io.CopyN(io.Discard, br, keyIDLen); err != nil {
			return nil, fmt.Errorf("%w: truncated key id: %v", ErrDecryptionFailed, err)
		}
	}
	if recordSize < minRecordSize || recordSize > maxRecordSize {
		return nil, fmt.Errorf("%w: invalid record size %d", ErrDecryptionFailed, recordSize)
	}

	gcm, nonceBase, err := contentCipher(secret, salt)
	if err != nil {
		return nil, err
	}

	return &DecryptReader{
		src:        br,
		gcm:        gcm,
		nonceBase:  nonceBase,
		recordSize: int(recordSize),
		record:     make([]byte, recordSize),
	}, nil
}

func (r *DecryptReader) Read(p []byte) (int, error) {
	for len(r.plain) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.done {
			return 0, io.EOF
		}
		if err := r.nextRecord(); err != nil {
			r.err = err
			return 0, err
		}
	}
	n := copy(p, r.plain)
	r.plain = r.plain[n:]
	return n, nil
}

// nextRecord reads, authenticates and unpads the record at the current
// sequence number. Records must arrive in order; a skipped or reordered
// record derives the wrong nonce and fails authentication.
func (r *DecryptReader) nextRecord() error {
	n, err := io.ReadFull(r.src, r.record)
	final := false
	switch err {
	case nil:
		if _, peekErr := r.src.Peek(1); peekErr == io.EOF {
			final = true
		}
	case io.ErrUnexpectedEOF:
		final = true
	case io.EOF:
		if r.seq == 0 {
			return fmt.Errorf("%w: empty content body", ErrDecryptionFailed)
		}
		return fmt.Errorf("%w: stream ended without a final record", ErrDecryptionFailed)
	default:
		return fmt.Errorf("%w: reading record %d: %v", ErrTransport, r.seq, err)
	}
	if n < eceTagLen+1 {
		return fmt.Errorf("%w: record %d shorter than auth tag", ErrDecryptionFailed, r.seq)
	}

	plain, openErr := r.gcm.Open(nil, eceNonce(r.nonceBase, r.seq), r.record[:n], nil)
	if openErr != nil {
		return fmt.Errorf("%w: record %d auth tag mismatch", ErrDecryptionFailed, r.seq)
	}
	data, unpadErr := unpadRecord(plain, final)
	if unpadErr != nil {
		return unpadErr
	}

	r.plain = data
	r.seq++
	if final {
		r.done = true
	}
	return nil
}

// DecryptStream decrypts an entire streamed content body into memory. The
// underlying record processing is still one record at a time.
func DecryptStream(secret []byte, src io.Reader) ([]byte, error) {
	r, err := NewDecryptReader(secret, src)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// EncryptStream is the reference encryptor: the exact inverse of
// DecryptReader, used by the mock share server and round-trip tests.
func EncryptStream(secret, salt []byte, recordSize uint32, plaintext []byte) ([]byte, error) {
	if len(salt) != eceSaltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", eceSaltLen, len(salt))
	}
	if recordSize < minRecordSize || recordSize > maxRecordSize {
		return nil, fmt.Errorf("invalid record size %d", recordSize)
	}

	gcm, nonceBase, err := contentCipher(secret, salt)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(salt)
	var rs [4]byte
	binary.BigEndian.PutUint32(rs[:], recordSize)
	out.Write(rs[:])
	out.WriteByte(0) // no key id

	chunk := int(recordSize) - eceTagLen - 1
	record := make([]byte, 0, chunk+1)
	for seq, offset := uint32(0), 0; ; seq++ {
		n := len(plaintext) - offset
		if n > chunk {
			n = chunk
		}
		final := offset+n == len(plaintext)

		record = append(record[:0], plaintext[offset:offset+n]...)
		if final {
			record = append(record, recordDelimiterFinal)
		} else {
			record = append(record, recordDelimiterMore)
		}
		out.Write(gcm.Seal(nil, eceNonce(nonceBase, seq), record, nil))

		offset += n
		if final {
			break
		}
	}
	return out.Bytes(), nil
}

// contentCipher derives the content encryption key and base nonce from the
// locator secret and header salt.
func contentCipher(secret, salt []byte) (cipher.AEAD, []byte, error) {
	cek, err := hkdfDerive(secret, salt, infoContentKey, eceKeyLen)
	if err != nil {
		return nil, nil, err
	}
	nonceBase, err := hkdfDerive(secret, salt, infoNonceBase, eceNonceLen)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return gcm, nonceBase, nil
}

// eceNonce XORs the big-endian sequence counter into the last four bytes of
// the base nonce.
func eceNonce(base []byte, seq uint32) []byte {
	nonce := make([]byte, eceNonceLen)
	copy(nonce, base)
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], seq)
	for i, b := range ctr {
		nonce[eceNonceLen-4+i] ^= b
	}
	return nonce
}

// unpadRecord strips the padding delimiter and any zero padding from a
// decrypted record. The delimiter is the last non-zero byte: 0x02 for
// non-final records, 0x01 for the final record.
func unpadRecord(plain []byte, final bool) ([]byte, error) {
	i := len(plain) - 1
	for i >= 0 && plain[i] == 0 {
		i--
	}
	if i < 0 {
		return nil, fmt.Errorf("%w: record missing padding delimiter", ErrDecryptionFailed)
	}
	want := byte(recordDelimiterMore)
	if final {
		want = recordDelimiterFinal
	}
	if plain[i] != want {
		return nil, fmt.Errorf("%w: unexpected padding delimiter 0x%02x", ErrDecryptionFailed, plain[i])
	}
	return plain[:i], nil
}
