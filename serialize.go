package bloomset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

const (
	// headerSize is the size of the serialization header: k as a
	// little-endian uint64.
	headerSize = 8

	// MaxChunkSize bounds the size of a single Write call issued while
	// serializing the bit array.
	MaxChunkSize = 32 << 20
)

// WriteTo serializes the filter to w. It implements [io.WriterTo].
//
// The format is:
//   - K (8 bytes): number of hash applications (little-endian uint64)
//   - Bits (SizeInBits/8 bytes): the bit array, most significant bit first
//     within each byte
//
// The header is written with one Write call and the bit array with as many
// calls as needed, none larger than [MaxChunkSize]. There is no checksum.
func (f *Filter) WriteTo(w io.Writer) (int64, error) {
	return f.writeChunks(w, MaxChunkSize)
}

func (f *Filter) writeChunks(w io.Writer, chunkSize uint64) (int64, error) {
	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[:], f.k)
	n, err := w.Write(header[:])
	written := int64(n)
	if err != nil {
		return written, err
	}

	total := f.bits.byteLen()
	buf := make([]byte, min(total, chunkSize))
	for off := uint64(0); off < total; {
		chunk := buf[:min(total-off, chunkSize)]
		f.bits.readBytes(chunk, off)
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
		off += uint64(len(chunk))
	}
	return written, nil
}

// ReadFrom replaces the contents of f with a filter read from r until EOF.
// It implements [io.ReaderFrom]. The size of the filter is taken from the
// number of bytes following the header. On error f is left unchanged.
func (f *Filter) ReadFrom(r io.Reader) (int64, error) {
	var header [headerSize]byte
	n, err := io.ReadFull(r, header[:])
	read := int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return read, fmt.Errorf("%w: header too short (got %d bytes, need %d)", ErrCorruptData, n, headerSize)
		}
		return read, err
	}

	payload, err := io.ReadAll(r)
	read += int64(len(payload))
	if err != nil {
		return read, err
	}

	loaded, err := decode(binary.LittleEndian.Uint64(header[:]), payload)
	if err != nil {
		return read, err
	}
	*f = *loaded
	return read, nil
}

func decode(k uint64, payload []byte) (*Filter, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty bit array", ErrCorruptData)
	}
	if k == 0 {
		return nil, fmt.Errorf("%w: k cannot be zero", ErrCorruptData)
	}
	size := uint64(len(payload)) * 8
	if size > maxSizeInBits {
		return nil, fmt.Errorf("%w: bit array too large (%d bytes)", ErrCorruptData, len(payload))
	}
	return &Filter{
		bits:       bitStoreFromBytes(payload),
		sizeInBits: size,
		k:          k,
	}, nil
}

// Load reads a filter written by [Filter.WriteTo] from r.
func Load(r io.Reader) (*Filter, error) {
	f := new(Filter)
	if _, err := f.ReadFrom(r); err != nil {
		return nil, err
	}
	return f, nil
}

// MarshalBinary serializes the filter to a byte slice using the same format
// as [Filter.WriteTo].
func (f *Filter) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(headerSize + f.bits.byteLen()))
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the contents of f with the serialized filter in
// data.
func (f *Filter) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: data too short (got %d bytes, need at least %d)", ErrCorruptData, len(data), headerSize)
	}
	loaded, err := decode(binary.LittleEndian.Uint64(data[:headerSize]), data[headerSize:])
	if err != nil {
		return err
	}
	*f = *loaded
	return nil
}

// LoadBytes deserializes a filter produced by [Filter.MarshalBinary].
// data is not retained.
func LoadBytes(data []byte) (*Filter, error) {
	f := new(Filter)
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveFile writes the filter to path. The file is replaced atomically, so
// readers see either the previous contents or the complete new filter.
func (f *Filter) SaveFile(path string) error {
	pf, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if _, err := f.WriteTo(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}

// LoadFile reads a filter saved with [Filter.SaveFile].
func LoadFile(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}
