package archive

import (
	"bytes"
	"encoding/binary"
)

// ZIP end-of-central-directory repair. Streaming uploaders frequently write
// an EOCD record whose central-directory start offset is wrong because the
// final offset was not known while streaming. The central directory size in
// the same record is reliable, so the true start is the EOCD position minus
// that size; when the recorded offset disagrees and the computed position
// holds a valid central-file-header signature, the offset field is patched
// before the buffer reaches the standard ZIP reader.

const (
	// eocdRecordLen is the fixed portion of the EOCD record.
	eocdRecordLen = 22
	// maxEOCDScan bounds the backward signature scan: fixed record plus the
	// maximum comment length (65535).
	maxEOCDScan = eocdRecordLen + 65535
)

var (
	eocdSignature          = []byte{0x50, 0x4b, 0x05, 0x06}
	centralHeaderSignature = []byte{0x50, 0x4b, 0x01, 0x02}
)

// repairCentralDirectory returns data with the EOCD central-directory
// offset corrected when the recorded value is provably wrong, or the
// original buffer unmodified when no safe correction exists. It runs
// unconditionally on every ZIP: the verification is cheap and a no-op for
// well-formed files.
func repairCentralDirectory(data []byte) []byte {
	eocd := findEOCD(data)
	if eocd < 0 {
		return data
	}

	cdSize := binary.LittleEndian.Uint32(data[eocd+12:])
	cdOffset := binary.LittleEndian.Uint32(data[eocd+16:])

	computed := eocd - int(cdSize)
	if computed < 0 || computed == int(cdOffset) {
		return data
	}
	if !bytes.HasPrefix(data[computed:], centralHeaderSignature) {
		// Correction does not verify; let standard parsing succeed or fail
		// on its own terms.
		return data
	}

	patched := bytes.Clone(data)
	binary.LittleEndian.PutUint32(patched[eocd+16:], uint32(computed))
	return patched
}

// findEOCD scans backward from the end of the buffer for the EOCD
// signature, bounded to the maximum record-plus-comment size.
func findEOCD(data []byte) int {
	limit := len(data) - maxEOCDScan
	if limit < 0 {
		limit = 0
	}
	for i := len(data) - eocdRecordLen; i >= limit; i-- {
		if bytes.HasPrefix(data[i:], eocdSignature) {
			return i
		}
	}
	return -1
}
