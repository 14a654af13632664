package downloader

import (
	"arxivdl/pkg/display"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Mutable
type manager struct {
	handlers map[string]SchemeHandler
}

// New returns a Downloader whose HTTP(S) handler uses client. The client is
// never replaced by a package-level default; callers share one explicitly.
func New(client *http.Client) Downloader {
	if client == nil {
		panic("downloader: nil http client")
	}
	m := &manager{
		handlers: make(map[string]SchemeHandler),
	}
	m.Register(NewHTTPHandler(client))
	return m
}

func (m *manager) Register(h SchemeHandler) {
	for _, scheme := range h.Schemes() {
		m.handlers[scheme] = h
	}
}

func (m *manager) Fetch(ctx context.Context, uri string, dest string, task display.Task) (*Result, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid uri: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	handler, ok := m.handlers[scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme: %s", scheme)
	}
	if task == nil {
		task = display.Discard
	}

	return handler.Fetch(ctx, uri, dest, task)
}
