package formats

import (
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	kerr "github.com/kalimaproject/kalima/core/errors"
)

// OpenInput opens a corpus file for reading, transparently decompressing
// a .xz stream.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kerr.Invalidf("input", "open %s: %v", path, err)
	}
	if !strings.HasSuffix(path, ".xz") {
		return f, nil
	}
	xr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, kerr.Invalidf("input", "xz stream %s: %v", path, err)
	}
	return &xzReadCloser{Reader: xr, file: f}, nil
}

type xzReadCloser struct {
	*xz.Reader
	file *os.File
}

func (r *xzReadCloser) Close() error { return r.file.Close() }

// trimExt strips a trailing .xz so Detect can look at the real
// extension of compressed inputs.
func trimExt(path string) string {
	return strings.TrimSuffix(path, ".xz")
}
