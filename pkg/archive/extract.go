// Package archive unpacks downloaded e-print archives.
//
// arXiv serves sources without a file extension, so the format is sniffed
// from the leading bytes instead of the name.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies an archive container.
type Format int

const (
	FormatUnknown Format = iota
	FormatGzip
	FormatZstd
	FormatZip
	FormatTar
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// ErrUnsupported is returned for files whose format cannot be recognised.
var ErrUnsupported = errors.New("unsupported archive format")

const (
	sniffLen    = 512
	tarMagicOff = 257
)

// maxEntrySize bounds a single extracted file. Larger entries are an error.
var maxEntrySize int64 = 1 << 30

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zipMagic  = []byte("PK\x03\x04")
	pdfMagic  = []byte("%PDF")
	tarMagic  = []byte("ustar")
)

// Detect identifies the format from the first bytes of a file.
func Detect(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(head, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip
	case bytes.HasPrefix(head, pdfMagic):
		return FormatPDF
	case isTar(head):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// isTar accepts POSIX and GNU headers by their magic, and old V7 headers,
// which have none, by their checksum.
func isTar(head []byte) bool {
	if len(head) >= tarMagicOff+len(tarMagic) && bytes.Equal(head[tarMagicOff:tarMagicOff+len(tarMagic)], tarMagic) {
		return true
	}
	if len(head) < sniffLen {
		return false
	}
	_, err := tar.NewReader(bytes.NewReader(head)).Next()
	return err == nil
}

// Extract unpacks the archive at src into the directory dest.
//
// A gzip stream that does not wrap a tarball is a single-file submission;
// it is decompressed to dest/<base of src>. A PDF is copied to
// dest/<base of src>.pdf.
func Extract(src string, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, sniffLen)
	head, _ := br.Peek(sniffLen)
	name := filepath.Base(src)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dest, err)
	}

	switch format := Detect(head); format {
	case FormatGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		return extractStream(gzr, dest, name)
	case FormatZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		return extractStream(zr, dest, name)
	case FormatZip:
		f.Close()
		return extractZip(src, dest)
	case FormatTar:
		return extractTar(br, dest)
	case FormatPDF:
		return writeSingle(br, dest, name+".pdf", 0644)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, src)
	}
}

// extractStream handles the decompressed payload of a gzip or zstd file,
// which is either a tarball or a single file.
func extractStream(r io.Reader, dest, name string) error {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read compressed stream: %w", err)
	}
	if isTar(head) {
		return extractTar(br, dest)
	}
	return writeSingle(br, dest, name, 0644)
}

func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		err := extractFile(f.Name, f.FileInfo(), dest, func() (io.ReadCloser, error) {
			return f.Open()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir, tar.TypeReg:
		default:
			// Links and devices have no place in a paper source tree.
			continue
		}

		err = extractFile(header.Name, header.FileInfo(), dest, func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// writeSingle writes r to dest/name.
func writeSingle(r io.Reader, dest, name string, mode os.FileMode) error {
	target := filepath.Join(dest, name)
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	if err := copyLimited(out, r, target); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyLimited copies r to w and fails once more than maxEntrySize bytes
// arrive.
func copyLimited(w io.Writer, r io.Reader, target string) error {
	n, err := io.Copy(w, io.LimitReader(r, maxEntrySize+1))
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("%s exceeds the %d byte entry limit", target, maxEntrySize)
	}
	return nil
}

// extractFile is a helper to extract a single file/dir.
// opener is a function that returns a reader for the file content.
func extractFile(name string, info os.FileInfo, dest string, opener func() (io.ReadCloser, error)) error {
	// Secure path calculation (Zip Slip protection)
	target := filepath.Join(dest, name)
	if target == filepath.Clean(dest) {
		return nil // "./" entries
	}
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path in archive: %s", name)
	}

	if info.IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
	}

	// Sources are never executable; keep only the read/write bits, and make
	// sure the owner can read what it extracted.
	mode := info.Mode().Perm()&0666 | 0600

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer f.Close()

	rc, err := opener()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", name, err)
	}
	// For tar, rc is NopCloser(tr), so Close() does not close the tar stream.
	defer rc.Close()

	return copyLimited(f, rc, target)
}
