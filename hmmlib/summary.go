package hmmlib

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteSummary writes the model parameters to w in text format.  The
// optional row labels are used if provided.
func WriteSummary(w io.Writer, par *Params, labels []string, title string) error {

	if labels != nil && len(labels) != par.NState {
		return errors.Wrapf(ErrDimensionMismatch, "%d labels for %d states", len(labels), par.NState)
	}

	var buf bytes.Buffer

	buf.WriteString(title)
	buf.WriteString("\n")

	buf.WriteString("Initial states distribution:\n")
	writeMatrix(&buf, par.Init, 1, par.NState, nil)
	buf.WriteString("\n")

	buf.WriteString("Transition matrix:\n")
	writeMatrix(&buf, par.Trans, par.NState, par.NState, labels)
	buf.WriteString("\n")

	buf.WriteString("Emission matrix:\n")
	writeMatrix(&buf, par.Emit, par.NState, par.NSymbol, labels)
	buf.WriteString("\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// writeMatrix writes a matrix in text format to buf
func writeMatrix(buf *bytes.Buffer, x []float64, nrow, ncol int, labels []string) {

	for i := 0; i < nrow; i++ {
		if labels != nil {
			fmt.Fprintf(buf, "%-20s", labels[i])
		}
		for j := 0; j < ncol; j++ {
			fmt.Fprintf(buf, "%12.4f ", x[i*ncol+j])
		}
		buf.WriteString("\n")
	}
}

// WriteParams writes the parameters to a gzip-compressed gob file.
func WriteParams(fname string, par *Params) error {

	if err := par.Validate(); err != nil {
		return err
	}

	fid, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "WriteParams")
	}

	gid := gzip.NewWriter(fid)
	if err := gob.NewEncoder(gid).Encode(par); err != nil {
		gid.Close()
		fid.Close()
		return errors.Wrapf(err, "WriteParams: encoding %s", fname)
	}
	if err := gid.Close(); err != nil {
		fid.Close()
		return errors.Wrapf(err, "WriteParams: %s", fname)
	}

	return errors.Wrapf(fid.Close(), "WriteParams: %s", fname)
}

// ReadParams reads parameters from a gzip-compressed gob file written by
// WriteParams.
func ReadParams(fname string) (*Params, error) {

	fid, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "ReadParams")
	}
	defer fid.Close()

	gid, err := gzip.NewReader(fid)
	if err != nil {
		return nil, errors.Wrapf(err, "ReadParams: %s", fname)
	}
	defer gid.Close()

	var par Params
	if err := gob.NewDecoder(gid).Decode(&par); err != nil {
		return nil, errors.Wrapf(err, "ReadParams: decoding %s", fname)
	}

	if err := par.Validate(); err != nil {
		return nil, err
	}

	return &par, nil
}
