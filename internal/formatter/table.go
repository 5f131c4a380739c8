package formatter

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/costlens/bugreport-ops/internal/types"
)

// Table implements table formatting
type Table struct{}

// Format renders one NODES and one NAMESPACES table per cluster.
func (t *Table) Format(reports []types.ParsedBugReport) (string, error) {
	var out strings.Builder
	for i, report := range reports {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(buildNodeTable(report).Render())
		out.WriteString("\n")
		out.WriteString(buildNamespaceTable(report).Render())
		out.WriteString("\n")
	}
	return out.String(), nil
}

func buildNodeTable(report types.ParsedBugReport) table.Writer {
	w := table.NewWriter()
	w.SetOutputMirror(nil)
	w.SetStyle(table.StyleLight)
	w.Style().Options.SeparateColumns = true
	w.SetTitle(fmt.Sprintf("NODES: %s", report.ClusterName))

	w.AppendHeader(table.Row{
		"NAME",
		"TYPE",
		"REGION",
		"ZONE",
		"CPUS",
		"MEMORY (GIB)",
		"K8S VERSION",
		"OS",
		"ARCH",
	})

	for _, node := range report.Nodes {
		w.AppendRow(table.Row{
			node.Name,
			node.Type,
			node.Region,
			node.Zone,
			node.CPUs,
			node.MemoryGiB,
			node.K8sVersion,
			node.OS,
			node.Arch,
		})
	}

	w.SortBy([]table.SortBy{
		{Name: "NAME", Mode: table.Asc},
	})
	return w
}

func buildNamespaceTable(report types.ParsedBugReport) table.Writer {
	w := table.NewWriter()
	w.SetOutputMirror(nil)
	w.SetStyle(table.StyleLight)
	w.Style().Options.SeparateColumns = true
	w.SetTitle(fmt.Sprintf("NAMESPACES: %s", report.ClusterName))

	w.AppendHeader(table.Row{
		"NAMESPACE",
		"SERVICES",
		"PODS",
		"CONTAINERS",
		"REQ CORES",
		"REQ MEM (GIB)",
		"LIMIT CORES",
		"LIMIT MEM (GIB)",
		"SIDECARS",
		"SIDECAR REQ CPU",
		"SIDECAR REQ MEM (GIB)",
	})

	for _, row := range report.NamespaceRows {
		w.AppendRow(table.Row{
			row.Namespace,
			row.Services,
			row.Pods,
			row.Containers,
			row.ReqCores,
			row.ReqMemGiB,
			row.LimitCores,
			row.LimitMemGiB,
			row.SidecarProxies,
			row.SidecarReqCPU,
			row.SidecarReqMemGiB,
		})
	}

	w.SortBy([]table.SortBy{
		{Name: "NAMESPACE", Mode: table.Asc},
	})
	return w
}
