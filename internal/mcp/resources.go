package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const jsonMIME = "application/json"

// QueryMetricsURI is the URI of the query metrics resource.
const QueryMetricsURI = "docsmcp://query_metrics"

// ListResources returns the corpus resources, plus query metrics when a
// collector is set.
func (s *Server) ListResources() []ResourceInfo {
	var out []ResourceInfo
	for _, cc := range s.config.Corpora {
		if cc.ResourceURI == "" {
			continue
		}
		out = append(out, ResourceInfo{URI: cc.ResourceURI, Name: cc.Name, MIMEType: jsonMIME})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.metrics != nil {
		out = append(out, ResourceInfo{URI: QueryMetricsURI, Name: "query_metrics", MIMEType: jsonMIME})
	}
	return out
}

// registerResources registers one describe resource per corpus.
func (s *Server) registerResources() {
	for _, cc := range s.config.Corpora {
		if cc.ResourceURI == "" {
			continue
		}
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        cc.Name,
				URI:         cc.ResourceURI,
				Description: fmt.Sprintf("%s: loaded chunk count, sources and semantic status", cc.Title),
				MIMEType:    jsonMIME,
			},
			s.makeDescribeHandler(cc.Name),
		)
		s.logger.Debug("Registered resource",
			slog.String("uri", cc.ResourceURI),
			slog.String("domain", cc.Name))
	}
}

// makeDescribeHandler creates a handler that describes the current index of
// domain. A reload between reads is reflected in the next read.
func (s *Server) makeDescribeHandler(domain string) mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		desc, err := s.router.Describe(domain)
		if err != nil {
			return nil, MapError(err)
		}
		return jsonResource(req.Params.URI, desc)
	}
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Query counts per domain and origin, top terms and recent 'not in docs' queries",
			MIMEType:    jsonMIME,
		},
		s.makeQueryMetricsHandler(),
	)
}

func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		s.mu.RLock()
		metrics := s.metrics
		s.mu.RUnlock()

		if metrics == nil {
			return nil, NewResourceNotFoundError(req.Params.URI)
		}
		return jsonResource(req.Params.URI, metrics.Snapshot())
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: jsonMIME,
				Text:     string(data),
			},
		},
	}, nil
}
