package inventory

import (
	"fmt"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/costlens/bugreport-ops/internal/logger"
	"github.com/costlens/bugreport-ops/internal/types"
)

// Well-known label keys, in preference order: current topology labels
// first, then the deprecated beta keys, then provider-specific ones.
var (
	instanceTypeLabels = []string{
		"node.kubernetes.io/instance-type",
		"beta.kubernetes.io/instance-type",
	}
	zoneLabels = []string{
		"topology.kubernetes.io/zone",
		"failure-domain.beta.kubernetes.io/zone",
		"topology.gke.io/zone",
	}
	regionLabels = []string{
		"topology.kubernetes.io/region",
		"failure-domain.beta.kubernetes.io/region",
	}
)

// zoneSuffixRe matches the trailing zone letter of a cloud zone name, e.g.
// the "-a" of "us-east-1a" style zones written as "us-east1-a".
var zoneSuffixRe = regexp.MustCompile(`-[a-z]$`)

// ExtractNodes parses the nodes member of a bug report into one row per
// cluster node. The member is either a YAML node list (kubectl get nodes -o
// yaml) or a free-text kubectl describe dump; the shape is detected from the
// first non-blank line.
func ExtractNodes(clusterName, content string) []types.ParsedNode {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if firstLine(content) != "" && strings.HasPrefix(firstLine(content), "Name:") {
		return parseDescribeNodes(clusterName, content)
	}
	return parseNodeYAML(clusterName, content)
}

// parseNodeYAML reads .items[] with .metadata.labels, .status.capacity and
// .status.nodeInfo. Parse failures are retried once with all annotations
// blocks stripped: annotation values are free form and may contain unquoted
// JSON that breaks strict YAML parsing, and they are never needed for node
// extraction. If the retry also fails the node list is empty, not an error.
func parseNodeYAML(clusterName, content string) []types.ParsedNode {
	items, err := nodeItems(content)
	if err != nil {
		items, err = nodeItems(stripAnnotations(content))
		if err != nil {
			logger.Warn().Err(err).Msg("node inventory YAML unparseable, returning empty node list")
			return nil
		}
	}

	var nodes []types.ParsedNode
	for _, item := range items {
		node, ok := asMap(item)
		if !ok {
			continue
		}
		metadata, _ := asMap(node["metadata"])
		status, _ := asMap(node["status"])
		labels := asStringMap(metadata["labels"])
		capacity := asStringMap(status["capacity"])
		nodeInfo := asStringMap(status["nodeInfo"])

		osImage := nodeInfo["osImage"]
		if osImage == "" {
			osImage = nodeInfo["operatingSystem"]
		}

		nodes = append(nodes, resolveNode(clusterName, nodeFields{
			name:     asString(metadata["name"]),
			labels:   labels,
			cpu:      capacity["cpu"],
			memory:   capacity["memory"],
			version:  nodeInfo["kubeletVersion"],
			os:       osImage,
			arch:     nodeInfo["architecture"],
		}))
	}
	return nodes
}

func nodeItems(content string) ([]interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}
	switch v := doc.(type) {
	case map[string]interface{}:
		items, _ := v["items"].([]interface{})
		return items, nil
	case []interface{}:
		return v, nil
	default:
		return nil, nil
	}
}

// nodeFields carries the raw per-node values before label resolution.
type nodeFields struct {
	name    string
	labels  map[string]string
	cpu     string
	memory  string
	version string
	os      string
	arch    string
}

// resolveNode applies the label fallback chains and derives the region from
// the zone when no explicit region label exists.
func resolveNode(clusterName string, f nodeFields) types.ParsedNode {
	zone := firstLabel(f.labels, zoneLabels)
	region := firstLabel(f.labels, regionLabels)
	if region == "" && zone != "" {
		region = zoneSuffixRe.ReplaceAllString(zone, "")
	}
	return types.ParsedNode{
		Cluster:    clusterName,
		Name:       f.name,
		Type:       firstLabel(f.labels, instanceTypeLabels),
		Region:     region,
		Zone:       zone,
		CPUs:       ParseCPUCores(f.cpu),
		MemoryGiB:  ParseMemoryGiB(f.memory),
		K8sVersion: f.version,
		OS:         f.os,
		Arch:       f.arch,
	}
}

// parseDescribeNodes parses kubectl describe node output: segments start at
// column-zero Name: lines, and within a segment a column-zero field line
// switches the current section. Indented continuation lines accumulate
// key=value pairs (Labels) or key: value pairs (Capacity, System Info).
func parseDescribeNodes(clusterName, content string) []types.ParsedNode {
	var nodes []types.ParsedNode

	var current *describeAccumulator
	section := ""
	flush := func() {
		if current != nil {
			nodes = append(nodes, current.node(clusterName))
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "Name:") {
			flush()
			current = newDescribeAccumulator(strings.TrimSpace(line[len("Name:"):]))
			section = ""
			continue
		}
		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			name, rest, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			section = strings.TrimSpace(name)
			// Describe output puts the first entry of a section on the
			// section line itself.
			if entry := strings.TrimSpace(rest); entry != "" {
				current.add(section, entry)
			}
			continue
		}
		current.add(section, strings.TrimSpace(line))
	}
	flush()
	return nodes
}

type describeAccumulator struct {
	name     string
	labels   map[string]string
	capacity map[string]string
	sysInfo  map[string]string
}

func newDescribeAccumulator(name string) *describeAccumulator {
	return &describeAccumulator{
		name:     name,
		labels:   make(map[string]string),
		capacity: make(map[string]string),
		sysInfo:  make(map[string]string),
	}
}

func (a *describeAccumulator) add(section, entry string) {
	switch section {
	case "Labels":
		if key, value, found := strings.Cut(entry, "="); found {
			a.labels[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	case "Capacity":
		if key, value, found := strings.Cut(entry, ":"); found {
			a.capacity[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	case "System Info":
		if key, value, found := strings.Cut(entry, ":"); found {
			a.sysInfo[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
}

func (a *describeAccumulator) node(clusterName string) types.ParsedNode {
	osImage := a.sysInfo["OS Image"]
	if osImage == "" {
		osImage = a.sysInfo["Operating System"]
	}
	return resolveNode(clusterName, nodeFields{
		name:    a.name,
		labels:  a.labels,
		cpu:     a.capacity["cpu"],
		memory:  a.capacity["memory"],
		version: a.sysInfo["Kubelet Version"],
		os:      osImage,
		arch:    a.sysInfo["Architecture"],
	})
}

// stripAnnotations removes every annotations: block line by line, dropping
// the block's more-indented continuation lines.
func stripAnnotations(content string) string {
	var kept []string
	skipIndent := -1
	for _, line := range strings.Split(content, "\n") {
		indent := indentOf(line)
		if skipIndent >= 0 {
			if strings.TrimSpace(line) == "" || indent > skipIndent {
				continue
			}
			skipIndent = -1
		}
		if strings.HasPrefix(strings.TrimSpace(line), "annotations:") {
			skipIndent = indent
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstLabel(labels map[string]string, keys []string) string {
	for _, key := range keys {
		if value := labels[key]; value != "" {
			return value
		}
	}
	return ""
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asStringMap(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for key, value := range m {
		out[key] = asString(value)
	}
	return out
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
