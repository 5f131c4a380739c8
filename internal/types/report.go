// Package types defines the shared data model produced by the bug report
// pipeline: per-cluster node inventories and per-namespace resource rows
// used downstream for cost estimation.
package types

// ParsedNode is one row per cluster node, resolved from either a YAML node
// list or a `kubectl describe node` dump.
type ParsedNode struct {
	// Cluster is the cluster this node belongs to
	Cluster string `json:"cluster" yaml:"cluster"`
	// Name is the node name
	Name string `json:"name" yaml:"name"`
	// Type is the cloud instance type (e.g. m5.xlarge)
	Type string `json:"type" yaml:"type"`
	// Region is the cloud region, derived from the zone when not labeled
	Region string `json:"region" yaml:"region"`
	// Zone is the availability zone
	Zone string `json:"zone" yaml:"zone"`
	// CPUs is the node CPU capacity in cores
	CPUs float64 `json:"cpus" yaml:"cpus"`
	// MemoryGiB is the node memory capacity in GiB
	MemoryGiB float64 `json:"memoryGiB" yaml:"memoryGiB"`
	// K8sVersion is the kubelet version
	K8sVersion string `json:"k8sVersion" yaml:"k8sVersion"`
	// OS is the operating system image
	OS string `json:"os" yaml:"os"`
	// Arch is the CPU architecture
	Arch string `json:"arch" yaml:"arch"`
}

// ParsedNamespaceRow aggregates resource requests and limits across all pods
// found in one namespace. Sidecar fields cover containers named istio-proxy
// and are a subset of the namespace totals.
type ParsedNamespaceRow struct {
	Cluster    string `json:"cluster" yaml:"cluster"`
	Namespace  string `json:"namespace" yaml:"namespace"`
	Services   int    `json:"services" yaml:"services"`
	Pods       int    `json:"pods" yaml:"pods"`
	Containers int    `json:"containers" yaml:"containers"`

	ReqCores    float64 `json:"reqCores" yaml:"reqCores"`
	ReqMemGiB   float64 `json:"reqMemGiB" yaml:"reqMemGiB"`
	LimitCores  float64 `json:"limitCores" yaml:"limitCores"`
	LimitMemGiB float64 `json:"limitMemGiB" yaml:"limitMemGiB"`

	SidecarProxies     int     `json:"sidecarProxies" yaml:"sidecarProxies"`
	SidecarReqCPU      float64 `json:"sidecarReqCPU" yaml:"sidecarReqCPU"`
	SidecarReqMemGiB   float64 `json:"sidecarReqMemGiB" yaml:"sidecarReqMemGiB"`
	SidecarLimitCPU    float64 `json:"sidecarLimitCPU" yaml:"sidecarLimitCPU"`
	SidecarLimitMemGiB float64 `json:"sidecarLimitMemGiB" yaml:"sidecarLimitMemGiB"`
}

// ParsedBugReport is the terminal output of the pipeline, one per cluster
// discovered in the uploaded archive. A report is emitted only when at least
// one of the nodes or k8s-resources members was present; a missing member
// yields an empty slice, not an error.
type ParsedBugReport struct {
	ClusterName   string               `json:"clusterName" yaml:"clusterName"`
	Nodes         []ParsedNode         `json:"nodes" yaml:"nodes"`
	NamespaceRows []ParsedNamespaceRow `json:"namespaceRows" yaml:"namespaceRows"`
}
