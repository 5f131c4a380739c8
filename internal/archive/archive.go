// Package archive identifies and extracts the few named member files the
// analysis pipeline needs from an uploaded bug report bundle, using bounded
// memory regardless of archive size. A bundle is a gzip-compressed TAR, or a
// ZIP wrapping one or more of them.
package archive

import (
	"bytes"
	"fmt"
)

// ErrUnsupportedContainer reports input that is neither gzip nor ZIP.
var ErrUnsupportedContainer = fmt.Errorf("unsupported container format")

// Container is the detected outer format of a bundle.
type Container int

const (
	ContainerUnsupported Container = iota
	ContainerGzip
	ContainerZip
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
)

// DetectContainer sniffs the container type from the leading magic bytes.
func DetectContainer(data []byte) Container {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return ContainerGzip
	case bytes.HasPrefix(data, zipMagic):
		return ContainerZip
	default:
		return ContainerUnsupported
	}
}

// Target member basenames, each nested under a cluster/ directory inside
// the TAR.
const (
	MemberClusterContext = "cluster-context"
	MemberNodes          = "nodes"
	MemberResources      = "k8s-resources"
)

// memberDir is the immediate parent directory of every target member.
const memberDir = "cluster"

// Bundle holds the decoded text of the target members for one cluster.
// Missing members are empty strings; partial extraction is valid.
type Bundle struct {
	// ClusterName is the first non-empty line of the cluster-context
	// member, trimmed
	ClusterName string
	// ClusterContext is the raw cluster-context member text
	ClusterContext string
	// Nodes is the node inventory member text (YAML list or describe dump)
	Nodes string
	// Resources is the k8s-resources member text (multi-document manifests)
	Resources string
}

// Empty reports whether none of the analyzable members were found.
func (b Bundle) Empty() bool {
	return b.Nodes == "" && b.Resources == ""
}
