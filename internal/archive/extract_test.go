package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tarEntry is one member of a test archive; order is preserved.
type tarEntry struct {
	name    string
	content string
}

func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, entry := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     entry.name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(entry.content)),
		}))
		_, err := tw.Write([]byte(entry.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectContainer(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Container
	}{
		{name: "gzip", data: []byte{0x1f, 0x8b, 0x08}, want: ContainerGzip},
		{name: "zip", data: []byte{0x50, 0x4b, 0x03, 0x04, 0x00}, want: ContainerZip},
		{name: "plain text", data: []byte("hello"), want: ContainerUnsupported},
		{name: "empty", data: nil, want: ContainerUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContainer(tt.data))
		})
	}
}

func TestExtractBundlesGzipTar(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "bug-report/README.md", content: "not a target"},
		{name: "bug-report/cluster/cluster-context", content: "\nprod-east\nextra\n"},
		{name: "bug-report/cluster/nodes", content: "items: []\n"},
		{name: "bug-report/cluster/k8s-resources", content: "kind: List\n"},
		{name: "bug-report/cluster/extra-file", content: "ignored"},
	})

	bundles, err := ExtractBundles(data)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	bundle := bundles[0]
	assert.Equal(t, "prod-east", bundle.ClusterName)
	assert.Equal(t, "\nprod-east\nextra\n", bundle.ClusterContext)
	assert.Equal(t, "items: []\n", bundle.Nodes)
	assert.Equal(t, "kind: List\n", bundle.Resources)
	assert.False(t, bundle.Empty())
}

func TestExtractBundlesMissingMembers(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "report/cluster/cluster-context", content: "staging\n"},
	})

	bundles, err := ExtractBundles(data)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	bundle := bundles[0]
	assert.Equal(t, "staging", bundle.ClusterName)
	assert.Empty(t, bundle.Nodes)
	assert.Empty(t, bundle.Resources)
	assert.True(t, bundle.Empty())
}

func TestExtractBundlesZip(t *testing.T) {
	cluster1 := buildTarGz(t, []tarEntry{
		{name: "a/cluster/cluster-context", content: "alpha\n"},
		{name: "a/cluster/nodes", content: "items: []\n"},
	})
	cluster2 := buildTarGz(t, []tarEntry{
		{name: "b/cluster/cluster-context", content: "beta\n"},
		{name: "b/cluster/k8s-resources", content: "kind: List\n"},
	})

	data := buildZip(t, map[string][]byte{
		"alpha.tar.gz": cluster1,
		"beta.tgz":     cluster2,
		"notes.txt":    []byte("operator notes, not an archive"),
	})

	bundles, err := ExtractBundles(data)
	require.NoError(t, err)
	require.Len(t, bundles, 2)

	names := map[string]bool{}
	for _, b := range bundles {
		names[b.ClusterName] = true
	}
	assert.True(t, names["alpha"])
	assert.True(t, names["beta"])
}

func TestExtractBundlesZipSniffsUnsuffixedEntries(t *testing.T) {
	inner := buildTarGz(t, []tarEntry{
		{name: "x/cluster/cluster-context", content: "gamma\n"},
		{name: "x/cluster/nodes", content: "items: []\n"},
	})

	// The nested archive carries no telltale extension; routing must fall
	// back to the gzip magic.
	data := buildZip(t, map[string][]byte{
		"upload.bin": inner,
	})

	bundles, err := ExtractBundles(data)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "gamma", bundles[0].ClusterName)
}

func TestExtractBundlesUnsupported(t *testing.T) {
	_, err := ExtractBundles([]byte("definitely not an archive"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedContainer))
}

func TestMatchTarget(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "direct member", path: "cluster/nodes", want: MemberNodes},
		{name: "nested member", path: "bug-report/2024/cluster/cluster-context", want: MemberClusterContext},
		{name: "resources member", path: "report/cluster/k8s-resources", want: MemberResources},
		{name: "trailing slash trimmed", path: "/report/cluster/nodes/", want: MemberNodes},
		{name: "wrong parent directory", path: "report/other/nodes", want: ""},
		{name: "bare basename", path: "nodes", want: ""},
		{name: "unknown basename", path: "report/cluster/unknown", want: ""},
		{name: "member name as directory", path: "cluster/nodes/file", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchTarget(tt.path))
		})
	}
}

func TestExtractStopsAfterAllMembers(t *testing.T) {
	// A corrupt trailing member after all three targets must not matter:
	// extraction stops as soon as everything is found.
	data := buildTarGz(t, []tarEntry{
		{name: "r/cluster/cluster-context", content: "prod\n"},
		{name: "r/cluster/nodes", content: "items: []\n"},
		{name: "r/cluster/k8s-resources", content: "kind: List\n"},
		{name: "r/huge-trailing-log", content: string(bytes.Repeat([]byte("x"), 1<<16))},
	})

	bundles, err := ExtractBundles(data)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "prod", bundles[0].ClusterName)
}
