package artifact

import (
	"archive/tar"
	"encoding"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"

	"github.com/GriffinCanCode/ai4/internal/model"
)

// maxTensorBytes bounds a single tar entry read back from disk.
const maxTensorBytes = 64 << 20

// tensors pairs the serialized names with the model's parameters.
func tensors(m *model.Model) map[string]encoding.BinaryMarshaler {
	return map[string]encoding.BinaryMarshaler{
		"w1": m.W1,
		"b1": m.B1,
		"w2": m.W2,
		"b2": m.B2,
	}
}

// writeWeights stores the model as a zstd-compressed tar archive with one
// entry per tensor, each holding gonum's binary encoding. Headers carry a
// fixed mod time so identical weights always produce identical bytes.
func writeWeights(path string, m *model.Model) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close weights file: %w", cerr)
		}
	}()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	byName := tensors(m)
	for _, name := range model.ParamNames {
		data, err := byName[name].MarshalBinary()
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  time.Unix(0, 0),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write %s header: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("failed to finish weights archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush zstd stream: %w", err)
	}
	return nil
}

// readWeights decodes a weights archive written by writeWeights. Unknown
// entries are ignored; missing ones make the archive malformed.
func readWeights(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrArtifactNotFound, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	defer f.Close()
	if info, err := f.Stat(); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrMalformedArtifact, path)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	defer zr.Close()

	raw := make(map[string][]byte, len(model.ParamNames))
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
		}
		if hdr.Size > maxTensorBytes {
			return nil, fmt.Errorf("%w: entry %s is %d bytes", ErrMalformedArtifact, hdr.Name, hdr.Size)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
		}
		raw[hdr.Name] = data
	}

	for _, name := range model.ParamNames {
		if _, ok := raw[name]; !ok {
			return nil, fmt.Errorf("%w: missing tensor %q", ErrMalformedArtifact, name)
		}
	}

	m := &model.Model{
		W1: new(mat.Dense),
		B1: new(mat.VecDense),
		W2: new(mat.Dense),
		B2: new(mat.VecDense),
	}
	targets := map[string]encoding.BinaryUnmarshaler{
		"w1": m.W1,
		"b1": m.B1,
		"w2": m.W2,
		"b2": m.B2,
	}
	for _, name := range model.ParamNames {
		if err := targets[name].UnmarshalBinary(raw[name]); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrMalformedArtifact, name, err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	return m, nil
}
