package wavfile

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWriterRejectsInvalidParams(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewWriter(filepath.Join(dir, "a.wav"), 0, 1, 16, false); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewWriter(filepath.Join(dir, "b.wav"), 48000, 1, 12, false); err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
	if _, err := NewWriter(filepath.Join(dir, "c.wav"), 48000, 1, 16, true); err == nil {
		t.Fatal("expected error for float with non-32-bit depth")
	}
}

// A 100-sample mono float write produces a file of exactly 44 + 4*100
// bytes, starting with ASCII RIFF.
func TestFloatRoundTripSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	w, err := NewWriter(path, 48000, 1, 32, true)
	if err != nil {
		t.Fatal(err)
	}

	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i) / 100
	}

	if _, err := w.WriteChannels([][]float64{samples}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := 44 + 4*100
	if len(data) != want {
		t.Fatalf("file length = %d, want %d", len(data), want)
	}
	if string(data[:4]) != "RIFF" {
		t.Fatalf("first 4 bytes = %q, want RIFF", data[:4])
	}
}

func TestWriteChannelsRejectsLengthMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mismatch.wav")

	w, err := NewWriter(path, 48000, 2, 16, false)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	_, err = w.WriteChannels([][]float64{{0, 1, 2}, {0, 1}})
	if err == nil {
		t.Fatal("expected error for mismatched channel lengths")
	}
}

func TestWriteChannelsRejectsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overflow.wav")

	w, err := NewWriter(path, 48000, 1, 16, false)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	_, err = w.WriteChannels([][]float64{{2.0}})
	if err == nil {
		t.Fatal("expected error for an out-of-range int16 sample")
	}
}

func TestGzipTargetIsValidGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav.gz")

	w, err := NewWriter(path, 48000, 1, 16, false)
	if err != nil {
		t.Fatal(err)
	}

	samples := []float64{0, 0.5, -0.5, 0.25}
	if _, err := w.WriteChannels([][]float64{samples}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a valid gzip stream: %v", err)
	}
	defer gr.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(gr); err != nil {
		t.Fatal(err)
	}

	want := 44 + 2*len(samples)
	if out.Len() != want {
		t.Fatalf("decompressed length = %d, want %d", out.Len(), want)
	}
	if string(out.Bytes()[:4]) != "RIFF" {
		t.Fatalf("first 4 bytes = %q, want RIFF", out.Bytes()[:4])
	}
}
