// Package wavfile writes standard RIFF/WAVE files, LPCM integer or
// IEEE float, single- or multi-channel, with transparent gzip
// compression when the output path ends in ".gz".
package wavfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

type ErrorCode int

const (
	NoError ErrorCode = iota
	InvalidArgument
	IO
)

type Error struct {
	Op   string
	Code ErrorCode
}

func (e *Error) Error() string { return fmt.Sprintf("wavfile: %s: code=%d", e.Op, e.Code) }

func newErr(op string, code ErrorCode) error { return &Error{Op: op, Code: code} }

// header is the standard 44-byte RIFF/WAVE header, used for both
// LPCM-int (AudioFormat 1) and IEEE-float (AudioFormat 3) output.
type header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Writer writes interleaved sample data to a RIFF/WAVE file, holding
// the file open (or buffering in memory for a gzip target) until
// Close finalizes the header with real sizes.
type Writer struct {
	sampleRate    int
	channels      int
	bitsPerSample int
	float         bool

	dataSize int64

	gzPath string
	dest   io.Writer
	file   *os.File
	buf    *bytes.Buffer
}

// NewWriter opens path for writing and emits a placeholder header.
// If path ends in ".gz", output is buffered in memory and gzip
// compressed on Close (the header must be rewritten with final sizes,
// which an already-compressed stream cannot be seeked back into).
// Otherwise the file is written directly and the header patched in
// place on Close, exactly as a plain WAV writer does.
func NewWriter(path string, sampleRate, channels, bitsPerSample int, float bool) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, newErr("NewWriter", InvalidArgument)
	}
	if !float && bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 24 && bitsPerSample != 32 {
		return nil, newErr("NewWriter", InvalidArgument)
	}
	if float && bitsPerSample != 32 {
		return nil, newErr("NewWriter", InvalidArgument)
	}

	w := &Writer{
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: bitsPerSample,
		float:         float,
	}

	if strings.HasSuffix(path, ".gz") {
		w.gzPath = path
		w.buf = &bytes.Buffer{}
		w.dest = w.buf
	} else {
		f, err := os.Create(path)
		if err != nil {
			return nil, &Error{Op: "NewWriter", Code: IO}
		}
		w.file = f
		w.dest = f
	}

	if err := w.writeHeader(w.dest, 0xFFFFFFFF, 0xFFFFFFFF); err != nil {
		w.abort()
		return nil, &Error{Op: "NewWriter", Code: IO}
	}

	return w, nil
}

func (w *Writer) abort() {
	if w.file != nil {
		w.file.Close()
	}
}

func (w *Writer) audioFormat() uint16 {
	if w.float {
		return 3
	}
	return 1
}

func (w *Writer) writeHeader(dest io.Writer, chunkSize, dataSize uint32) error {
	byteRate := w.sampleRate * w.channels * w.bitsPerSample / 8
	blockAlign := w.channels * w.bitsPerSample / 8

	h := header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     chunkSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   w.audioFormat(),
		NumChannels:   uint16(w.channels),
		SampleRate:    uint32(w.sampleRate),
		ByteRate:      uint32(byteRate),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(w.bitsPerSample),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	return binary.Write(dest, binary.LittleEndian, &h)
}

// WriteChannels interleaves channels sample-major and appends the
// result to the file, converting each sample to the writer's
// configured bit depth for integer formats or writing IEEE754
// float32 directly for float format. All channel slices must share
// one length.
func (w *Writer) WriteChannels(channels [][]float64) (int, error) {
	if len(channels) != w.channels {
		return 0, newErr("WriteChannels", InvalidArgument)
	}
	if len(channels) == 0 {
		return 0, nil
	}

	n := len(channels[0])
	for _, c := range channels {
		if len(c) != n {
			return 0, newErr("WriteChannels", InvalidArgument)
		}
	}

	bytesWritten := 0
	for i := 0; i < n; i++ {
		for _, c := range channels {
			buf, err := w.encodeSample(c[i])
			if err != nil {
				return bytesWritten, err
			}
			if _, err := w.dest.Write(buf); err != nil {
				return bytesWritten, &Error{Op: "WriteChannels", Code: IO}
			}
			bytesWritten += len(buf)
		}
	}

	w.dataSize += int64(bytesWritten)
	return bytesWritten, nil
}

func (w *Writer) encodeSample(v float64) ([]byte, error) {
	if w.float {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return buf, nil
	}

	switch w.bitsPerSample {
	case 8:
		scaled := v*127 + 128
		if scaled < 0 || scaled > 255 {
			return nil, newErr("WriteChannels", InvalidArgument)
		}
		return []byte{uint8(scaled)}, nil
	case 16:
		scaled := v * 32767
		if scaled < -32768 || scaled > 32767 {
			return nil, newErr("WriteChannels", InvalidArgument)
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(int16(scaled)))
		return buf, nil
	case 24:
		scaled := v * 8388607
		if scaled < -8388608 || scaled > 8388607 {
			return nil, newErr("WriteChannels", InvalidArgument)
		}
		s := int32(scaled)
		return []byte{byte(s), byte(s >> 8), byte(s >> 16)}, nil
	case 32:
		scaled := v * 2147483647
		if scaled < -2147483648 || scaled > 2147483647 {
			return nil, newErr("WriteChannels", InvalidArgument)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(scaled)))
		return buf, nil
	default:
		return nil, newErr("WriteChannels", InvalidArgument)
	}
}

// Close finalizes the file by rewriting the header with the real
// chunk sizes. For a plain (non-gzip) target this seeks back to the
// start of the file and rewrites the 44-byte header in place; for a
// ".gz" target the whole buffered stream is compressed and written in
// one pass, since a gzip stream cannot be seeked back into.
func (w *Writer) Close() error {
	chunkSize := uint32(36 + w.dataSize)
	dataSize := uint32(w.dataSize)

	if w.file != nil {
		if _, err := w.file.Seek(0, io.SeekStart); err != nil {
			w.file.Close()
			return &Error{Op: "Close", Code: IO}
		}
		if err := w.writeHeader(w.file, chunkSize, dataSize); err != nil {
			w.file.Close()
			return &Error{Op: "Close", Code: IO}
		}
		return w.file.Close()
	}

	out, err := os.Create(w.gzPath)
	if err != nil {
		return &Error{Op: "Close", Code: IO}
	}
	defer out.Close()

	gz := gzip.NewWriter(out)

	final := &bytes.Buffer{}
	if err := w.writeHeader(final, chunkSize, dataSize); err != nil {
		return &Error{Op: "Close", Code: IO}
	}
	final.Write(w.buf.Bytes()[44:])

	if _, err := gz.Write(final.Bytes()); err != nil {
		return &Error{Op: "Close", Code: IO}
	}
	return gz.Close()
}
