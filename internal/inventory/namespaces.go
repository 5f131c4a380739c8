package inventory

import (
	"regexp"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/costlens/bugreport-ops/internal/logger"
	"github.com/costlens/bugreport-ops/internal/types"
)

// sidecarContainerName is the Istio sidecar proxy; its usage is tracked in
// separate counters on top of the namespace totals.
const sidecarContainerName = "istio-proxy"

// Pod label keys whose distinct values count as services in a namespace.
var serviceNameLabels = []string{"app", "app.kubernetes.io/name"}

var documentSeparatorRe = regexp.MustCompile(`(?m)^---\s*$`)

// ExtractNamespaceRows parses the k8s-resources member of a bug report into
// one aggregated row per namespace. The member may hold many YAML documents;
// documents that fail to parse are skipped silently.
func ExtractNamespaceRows(clusterName, content string) []types.ParsedNamespaceRow {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	accumulators := make(map[string]*namespaceAccumulator)
	for _, doc := range documentSeparatorRe.Split(content, -1) {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		var obj map[string]interface{}
		if err := yaml.Unmarshal([]byte(doc), &obj); err != nil {
			logger.Debug().Err(err).Msg("skipping unparseable resource document")
			continue
		}
		for _, pod := range collectPods(obj) {
			accumulatePod(accumulators, pod)
		}
	}

	rows := make([]types.ParsedNamespaceRow, 0, len(accumulators))
	for namespace, acc := range accumulators {
		rows = append(rows, acc.row(clusterName, namespace))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Namespace < rows[j].Namespace })
	return rows
}

// collectPods returns the Pod objects in a document: the document itself,
// or the Pod items of a kind: List.
func collectPods(obj map[string]interface{}) []map[string]interface{} {
	switch asString(obj["kind"]) {
	case "Pod":
		return []map[string]interface{}{obj}
	case "List":
		items, _ := obj["items"].([]interface{})
		var pods []map[string]interface{}
		for _, item := range items {
			if m, ok := asMap(item); ok && asString(m["kind"]) == "Pod" {
				pods = append(pods, m)
			}
		}
		return pods
	default:
		return nil
	}
}

func accumulatePod(accumulators map[string]*namespaceAccumulator, pod map[string]interface{}) {
	metadata, _ := asMap(pod["metadata"])
	namespace := asString(metadata["namespace"])
	if namespace == "" {
		namespace = "default"
	}

	acc := accumulators[namespace]
	if acc == nil {
		acc = &namespaceAccumulator{services: make(map[string]struct{})}
		accumulators[namespace] = acc
	}
	acc.pods++

	labels := asStringMap(metadata["labels"])
	for _, key := range serviceNameLabels {
		if name := labels[key]; name != "" {
			acc.services[name] = struct{}{}
			break
		}
	}

	spec, _ := asMap(pod["spec"])
	containers, _ := spec["containers"].([]interface{})
	for _, c := range containers {
		container, ok := asMap(c)
		if !ok {
			continue
		}
		acc.containers++

		resources, _ := asMap(container["resources"])
		requests := asStringMap(resources["requests"])
		limits := asStringMap(resources["limits"])

		reqCPU := ParseCPUCores(requests["cpu"])
		reqMem := ParseMemoryGiB(requests["memory"])
		limCPU := ParseCPUCores(limits["cpu"])
		limMem := ParseMemoryGiB(limits["memory"])

		acc.reqCores += reqCPU
		acc.reqMemGiB += reqMem
		acc.limitCores += limCPU
		acc.limitMemGiB += limMem

		if asString(container["name"]) == sidecarContainerName {
			acc.sidecars++
			acc.sidecarReqCPU += reqCPU
			acc.sidecarReqMemGiB += reqMem
			acc.sidecarLimitCPU += limCPU
			acc.sidecarLimitMemGiB += limMem
		}
	}
}

// namespaceAccumulator collects per-namespace totals across pods. Sidecar
// usage also flows into the namespace totals, so it is always a subset of
// them.
type namespaceAccumulator struct {
	pods       int
	containers int
	sidecars   int
	services   map[string]struct{}

	reqCores    float64
	reqMemGiB   float64
	limitCores  float64
	limitMemGiB float64

	sidecarReqCPU      float64
	sidecarReqMemGiB   float64
	sidecarLimitCPU    float64
	sidecarLimitMemGiB float64
}

func (a *namespaceAccumulator) row(clusterName, namespace string) types.ParsedNamespaceRow {
	return types.ParsedNamespaceRow{
		Cluster:    clusterName,
		Namespace:  namespace,
		Services:   len(a.services),
		Pods:       a.pods,
		Containers: a.containers,

		ReqCores:    round4(a.reqCores),
		ReqMemGiB:   round4(a.reqMemGiB),
		LimitCores:  round4(a.limitCores),
		LimitMemGiB: round4(a.limitMemGiB),

		SidecarProxies:     a.sidecars,
		SidecarReqCPU:      round4(a.sidecarReqCPU),
		SidecarReqMemGiB:   round4(a.sidecarReqMemGiB),
		SidecarLimitCPU:    round4(a.sidecarLimitCPU),
		SidecarLimitMemGiB: round4(a.sidecarLimitMemGiB),
	}
}
