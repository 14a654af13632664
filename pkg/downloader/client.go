package downloader

import "net/http"

// NewClient builds the HTTP client shared by every request arxivdl makes.
//
// Transparent decompression is disabled: arXiv serves e-prints gzip-encoded,
// and the bytes on disk must match the Content-Length the probe reports.
func NewClient(userAgent string) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableCompression = true

	var rt http.RoundTripper = tr
	if userAgent != "" {
		rt = &userAgentTransport{base: tr, userAgent: userAgent}
	}
	return &http.Client{
		Transport: rt,
		Timeout:   0, // Handled by context
	}
}

// Immutable
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}
