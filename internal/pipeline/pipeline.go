// Package pipeline wires the protocol client, archive extractor and
// inventory parser into the two entry points the job runner consumes:
// DownloadFromSend and ParseBugReport.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/costlens/bugreport-ops/internal/archive"
	"github.com/costlens/bugreport-ops/internal/inventory"
	"github.com/costlens/bugreport-ops/internal/logger"
	"github.com/costlens/bugreport-ops/internal/sendclient"
	"github.com/costlens/bugreport-ops/internal/types"
)

// Options holds configuration for the pipeline
type Options struct {
	// Timeout bounds each network request of the protocol client
	Timeout time.Duration
	// UserAgent is sent on every outbound request
	UserAgent string
}

// DefaultOptions returns the default pipeline options
func DefaultOptions() *Options {
	clientDefaults := sendclient.DefaultOptions()
	return &Options{
		Timeout:   clientDefaults.Timeout,
		UserAgent: clientDefaults.UserAgent,
	}
}

// Pipeline runs the bug report retrieval and analysis flow. Each invocation
// is a single sequential pass; concurrent invocations across independent
// share links share no mutable state.
type Pipeline struct {
	client *sendclient.Client
}

// New creates a pipeline. A nil httpClient uses a default client; tests
// inject the mock share server's transport through it.
func New(opts *Options, httpClient *http.Client) *Pipeline {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Pipeline{
		client: sendclient.New(&sendclient.Options{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
		}, httpClient),
	}
}

// DownloadFromSend retrieves and decrypts the blob behind a share URL,
// returning the raw bytes and the decrypted file descriptor.
func (p *Pipeline) DownloadFromSend(ctx context.Context, shareURL, password string) ([]byte, *sendclient.Metadata, error) {
	data, metadata, err := p.client.Download(ctx, shareURL, password)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().
		Str("name", metadata.Name).
		Int("bytes", len(data)).
		Msg("downloaded and decrypted share blob")
	return data, metadata, nil
}

// ParseBugReport extracts and parses every cluster bundle in the buffer,
// which holds either a raw gzip-TAR or a ZIP of such archives. Bundles
// missing both the nodes and k8s-resources members are dropped; a bundle
// with only one of them still yields a report with the other list empty.
func ParseBugReport(buffer []byte) ([]types.ParsedBugReport, error) {
	bundles, err := archive.ExtractBundles(buffer)
	if err != nil {
		return nil, err
	}

	var reports []types.ParsedBugReport
	for _, bundle := range bundles {
		if bundle.Empty() {
			logger.Warn().
				Str("cluster", bundle.ClusterName).
				Msg("bundle has neither nodes nor resources, skipping")
			continue
		}
		reports = append(reports, types.ParsedBugReport{
			ClusterName:   bundle.ClusterName,
			Nodes:         inventory.ExtractNodes(bundle.ClusterName, bundle.Nodes),
			NamespaceRows: inventory.ExtractNamespaceRows(bundle.ClusterName, bundle.Resources),
		})
	}
	return reports, nil
}

// Run is the end-to-end flow: download, decrypt and parse one bug report
// link.
func (p *Pipeline) Run(ctx context.Context, shareURL, password string) ([]types.ParsedBugReport, *sendclient.Metadata, error) {
	data, metadata, err := p.DownloadFromSend(ctx, shareURL, password)
	if err != nil {
		return nil, nil, err
	}
	reports, err := ParseBugReport(data)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().
		Str("name", metadata.Name).
		Int("clusters", len(reports)).
		Msg("parsed bug report")
	return reports, metadata, nil
}
