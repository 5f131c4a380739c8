package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/costlens/bugreport-ops/internal/logger"
)

// nestedArchiveSuffixes marks ZIP entries routed to the gzip-TAR path by
// name alone; anything else is content-sniffed.
var nestedArchiveSuffixes = []string{".tar.gz", ".tgz", ".gz"}

// ExtractBundles extracts the target members from a bug report upload. Raw
// gzip-TAR input yields one bundle; a ZIP yields one bundle per nested
// gzip-TAR entry. Anything else fails with ErrUnsupportedContainer.
func ExtractBundles(data []byte) ([]Bundle, error) {
	switch DetectContainer(data) {
	case ContainerGzip:
		bundle, err := extractTarGz(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return []Bundle{bundle}, nil
	case ContainerZip:
		return extractZip(data)
	default:
		return nil, fmt.Errorf("%w: no gzip or ZIP magic", ErrUnsupportedContainer)
	}
}

// extractZip repairs the central directory if needed, then walks the ZIP
// routing every nested gzip-TAR entry through the streaming TAR path.
func extractZip(data []byte) ([]Bundle, error) {
	repaired := repairCentralDirectory(data)

	reader, err := zip.NewReader(bytes.NewReader(repaired), int64(len(repaired)))
	if err != nil {
		return nil, fmt.Errorf("open ZIP: %w", err)
	}

	var bundles []Bundle
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open ZIP entry %s: %w", entry.Name, err)
		}

		nested, stream, sniffErr := isNestedArchive(entry.Name, rc)
		if sniffErr != nil {
			rc.Close()
			return nil, fmt.Errorf("sniff ZIP entry %s: %w", entry.Name, sniffErr)
		}
		if !nested {
			logger.Debug().Str("entry", entry.Name).Msg("skipping non-archive ZIP entry")
			rc.Close()
			continue
		}

		bundle, err := extractTarGz(stream)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("ZIP entry %s: %w", entry.Name, err)
		}
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

// isNestedArchive decides whether a ZIP entry holds a gzip-TAR, by suffix or
// by sniffing the first bytes. The returned reader replays any sniffed
// bytes.
func isNestedArchive(name string, r io.Reader) (bool, io.Reader, error) {
	lower := strings.ToLower(name)
	for _, suffix := range nestedArchiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true, r, nil
		}
	}

	head := make([]byte, len(gzipMagic))
	n, err := io.ReadFull(r, head)
	replay := io.MultiReader(bytes.NewReader(head[:n]), r)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return false, replay, nil
	}
	if err != nil {
		return false, replay, err
	}
	return bytes.Equal(head, gzipMagic), replay, nil
}

// extractTarGz streams a gzip-TAR, retaining only the target members.
// Decompressed bytes flow chunkwise from the inflater into the TAR reader;
// the full archive is never held in memory, and reading stops the moment
// all three members have been found. Abandoning the remaining stream on
// that early exit is a normal outcome, not an error.
func extractTarGz(r io.Reader) (Bundle, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Bundle{}, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	var bundle Bundle
	found := 0

	tr := tar.NewReader(gz)
	for found < 3 {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Bundle{}, fmt.Errorf("read TAR header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		member := matchTarget(header.Name)
		if member == "" {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return Bundle{}, fmt.Errorf("read TAR member %s: %w", header.Name, err)
		}

		switch member {
		case MemberClusterContext:
			bundle.ClusterContext = string(content)
		case MemberNodes:
			bundle.Nodes = string(content)
		case MemberResources:
			bundle.Resources = string(content)
		}
		found++
	}

	bundle.ClusterName = firstNonEmptyLine(bundle.ClusterContext)
	return bundle, nil
}

// matchTarget returns the member name when the final two path segments are
// cluster/<target>, otherwise empty. Matching is by path, never by content.
func matchTarget(name string) string {
	segments := strings.Split(strings.Trim(name, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != memberDir {
		return ""
	}
	switch base := segments[len(segments)-1]; base {
	case MemberClusterContext, MemberNodes, MemberResources:
		return base
	default:
		return ""
	}
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
