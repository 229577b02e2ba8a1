// Package report exports and imports scan snapshots
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/dundee/topfiles/pkg/cache"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// xzMagic is the header of every xz stream
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Export writes the snapshot as indented JSON, xz compressed if compress is set
func Export(w io.Writer, data *cache.Data, compress bool) error {
	if !compress {
		return encode(w, data)
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "creating xz writer")
	}
	if err := encode(xw, data); err != nil {
		xw.Close()
		return err
	}
	return errors.Wrap(xw.Close(), "closing xz writer")
}

// ExportFile writes the snapshot to path, files ending with .xz are compressed
func ExportFile(path string, data *cache.Data) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating export file %s", path)
	}

	if err := Export(f, data, strings.HasSuffix(path, ".xz")); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "closing export file %s", path)
}

// Import reads a snapshot written by Export, compression is detected automatically
func Import(r io.Reader) (*cache.Data, error) {
	br := bufio.NewReader(r)

	header, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "reading export header")
	}

	var reader io.Reader = br
	if bytes.Equal(header, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "creating xz reader")
		}
		reader = xr
	}

	data := &cache.Data{}
	if err := json.NewDecoder(reader).Decode(data); err != nil {
		return nil, errors.Wrap(err, "decoding exported snapshot")
	}
	if err := data.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid exported snapshot")
	}
	return data, nil
}

// ImportFile reads a snapshot from path
func ImportFile(path string) (*cache.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening export file %s", path)
	}
	defer f.Close()

	return Import(f)
}

func encode(w io.Writer, data *cache.Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(data), "encoding snapshot")
}
