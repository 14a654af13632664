package downloader

import (
	"arxivdl/pkg/display"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

const chunkSize = 32 * 1024

// Immutable
type httpHandler struct {
	client *http.Client
	// create opens the destination file for writing.
	create func(path string) (io.WriteCloser, error)
}

// NewHTTPHandler returns a handler that issues requests through client.
func NewHTTPHandler(client *http.Client) SchemeHandler {
	return &httpHandler{client: client, create: createFile}
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (h *httpHandler) Schemes() []string {
	return []string{"http", "https"}
}

func (h *httpHandler) Fetch(ctx context.Context, uri string, dest string, task display.Task) (*Result, error) {
	res := &Result{URL: uri, Path: dest}

	total, err := h.probe(ctx, uri)
	if err != nil {
		return nil, err
	}
	res.Total = total

	if total > 0 && localSize(dest) == total {
		slog.Debug("Archive already downloaded", "path", dest, "size", total)
		task.Log(fmt.Sprintf("File '%s' is already downloaded", dest))
		res.Skipped = true
		return res, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, newError(GetFailed, uri, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, newError(GetFailed, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(GetFailed, uri, fmt.Errorf("bad status: %s", resp.Status))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, newError(FileCreateFailed, dest, err)
	}
	f, err := h.create(dest)
	if err != nil {
		return nil, newError(FileCreateFailed, dest, err)
	}

	task.SetStage("Download", uri)
	pw := &progressWriter{task: task, total: total}

	written, err := stream(f, resp.Body, pw, uri, dest)
	res.Written = written
	if cerr := f.Close(); err == nil && cerr != nil {
		err = newError(WriteFailed, dest, cerr)
	}
	if err != nil {
		os.Remove(dest)
		return nil, err
	}

	slog.Debug("Download finished", "url", uri, "path", dest, "bytes", written)
	return res, nil
}

// probe issues a HEAD request and returns the declared content length, or 0
// when the remote declares none.
func (h *httpHandler) probe(ctx context.Context, uri string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return 0, newError(ProbeFailed, uri, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, newError(ProbeFailed, uri, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("Probe returned non-success status", "url", uri, "status", resp.Status)
		return 0, nil
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

// stream copies body into f chunk by chunk, reporting each chunk to pw.
// Every chunk is written in full; only the reported progress is clamped.
func stream(f io.Writer, body io.Reader, pw *progressWriter, uri, dest string) (int64, error) {
	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, newError(WriteFailed, dest, werr)
			}
			written += int64(n)
			pw.Write(buf[:n])
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, newError(GetFailed, uri, fmt.Errorf("error while downloading file: %w", rerr))
		}
	}
}

func localSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return 0
	}
	return fi.Size()
}

// Mutable
type progressWriter struct {
	task       display.Task
	total      int64
	downloaded int64
}

// Write advances the progress counter by len(p), never past the declared
// total when there is one.
func (pw *progressWriter) Write(p []byte) (int, error) {
	n := int64(len(p))
	if pw.total > 0 {
		pw.downloaded = min(pw.downloaded+n, pw.total)
	} else {
		pw.downloaded += n
	}
	pw.task.Progress(pw.downloaded, pw.total)
	return len(p), nil
}
