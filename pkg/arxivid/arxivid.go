// Package arxivid recognises arXiv identifiers and builds the URLs they live at.
//
// Two identifier schemes are accepted:
//
//	hep-th/9901001, math.CA/0611800v2, math/0211159   (legacy, before April 2007)
//	0704.0001, 1501.00001, 9912.12345v2               (modern)
package arxivid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	legacyPattern = `[A-Za-z]+(?:[.-][A-Za-z]+)*/\d{7}(?:v\d+)?`
	modernPattern = `\d{4}\.\d{4,5}(?:v\d+)?`

	// loosePattern is the historical, unanchored matcher. It accepts any
	// input that merely contains something id-shaped.
	loosePattern = `(\w+[.-]\w+/)|(\d+.)\d+v?\d+`
)

var (
	strictRe = compileAnchored(legacyPattern + "|" + modernPattern)
	looseRe  = regexp.MustCompile(loosePattern)
)

// ErrInvalid is returned by Parse for strings that are not arXiv identifiers.
var ErrInvalid = errors.New("not a valid arXiv identifier")

// compileAnchored wraps pattern in ^(?:...)$ so alternations cannot match a substring.
func compileAnchored(pattern string) *regexp.Regexp {
	return regexp.MustCompile("^(?:" + pattern + ")$")
}

// Valid reports whether candidate is, in its entirety, an arXiv identifier.
func Valid(candidate string) bool {
	return strictRe.MatchString(candidate)
}

// Loose reports whether candidate contains anything resembling an identifier.
// It exists for callers that relied on the old substring behaviour; new code
// should use Valid.
func Loose(candidate string) bool {
	return looseRe.MatchString(candidate)
}

// Parse normalises s into an identifier. Plain identifiers are returned as-is
// (after trimming spaces); arXiv abstract, pdf and e-print URLs are reduced to
// the identifier they reference.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if Valid(s) {
		return s, nil
	}
	if id, ok := FromURL(s); ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalid, s)
}

// FromURL extracts the identifier from an arxiv.org URL such as
// https://arxiv.org/abs/0704.0001v2 or https://export.arxiv.org/e-print/hep-th/9901001.
func FromURL(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "arxiv.org" && !strings.HasSuffix(host, ".arxiv.org") {
		return "", false
	}

	p := strings.TrimPrefix(u.Path, "/")
	for _, prefix := range []string{"abs/", "pdf/", "e-print/", "src/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			rest = strings.TrimSuffix(strings.TrimSuffix(rest, "/"), ".pdf")
			if Valid(rest) {
				return rest, true
			}
			return "", false
		}
	}
	return "", false
}

// SourceURL returns the e-print (source archive) URL for id on host.
func SourceURL(host, id string) string {
	return (&url.URL{Scheme: "https", Host: host, Path: "/e-print/" + id}).String()
}

// AbstractURL returns the abstract page URL for id on host.
func AbstractURL(host, id string) string {
	return (&url.URL{Scheme: "https", Host: host, Path: "/abs/" + id}).String()
}

// base returns the last path element of id: "9901001v1" for "hep-th/9901001v1",
// and id itself for modern identifiers.
func base(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Version returns the version suffix of id (e.g. "v2"), or "" when unversioned.
func Version(id string) string {
	b := base(id)
	if i := strings.LastIndex(b, "v"); i > 0 {
		return b[i:]
	}
	return ""
}
