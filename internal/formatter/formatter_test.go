package formatter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/costlens/bugreport-ops/internal/types"
)

func sampleReports() []types.ParsedBugReport {
	return []types.ParsedBugReport{
		{
			ClusterName: "prod-east",
			Nodes: []types.ParsedNode{
				{
					Cluster:    "prod-east",
					Name:       "node-a",
					Type:       "m5.xlarge",
					Region:     "us-east-1",
					Zone:       "us-east-1a",
					CPUs:       4,
					MemoryGiB:  16,
					K8sVersion: "v1.28.3",
					OS:         "Ubuntu 22.04.3 LTS",
					Arch:       "amd64",
				},
			},
			NamespaceRows: []types.ParsedNamespaceRow{
				{
					Cluster:    "prod-east",
					Namespace:  "payments",
					Services:   1,
					Pods:       2,
					Containers: 4,
					ReqCores:   0.6,
					ReqMemGiB:  1.25,
				},
			},
		},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		format  Type
		want    Formatter
		wantErr bool
	}{
		{name: "json", format: TypeJSON, want: &JSON{}},
		{name: "yaml", format: TypeYAML, want: &YAML{}},
		{name: "table", format: TypeTable, want: &Table{}},
		{name: "unsupported", format: Type("xml"), wantErr: true},
		{name: "empty", format: Type(""), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestJSONFormat(t *testing.T) {
	f := &JSON{}
	out, err := f.Format(sampleReports())
	require.NoError(t, err)

	var decoded []types.ParsedBugReport
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, sampleReports(), decoded)
}

func TestYAMLFormat(t *testing.T) {
	f := &YAML{}
	out, err := f.Format(sampleReports())
	require.NoError(t, err)

	var decoded []types.ParsedBugReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, sampleReports(), decoded)
}

func TestTableFormat(t *testing.T) {
	f := &Table{}
	out, err := f.Format(sampleReports())
	require.NoError(t, err)

	assert.Contains(t, out, "NODES: prod-east")
	assert.Contains(t, out, "NAMESPACES: prod-east")
	assert.Contains(t, out, "node-a")
	assert.Contains(t, out, "m5.xlarge")
	assert.Contains(t, out, "payments")
	assert.Contains(t, out, "SIDECARS")
}

func TestTableFormatEmpty(t *testing.T) {
	f := &Table{}
	out, err := f.Format(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
