package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTripAllAlgorithms(t *testing.T) {
	payload := []byte(strings.Repeat(`{"key":"user_1","name":"Alice","age":25}`, 100))

	for _, alg := range []Algorithm{AlgorithmNone, AlgorithmSnappy, AlgorithmZstd, AlgorithmGzip} {
		t.Run(alg.String(), func(t *testing.T) {
			compressed, err := Compress(payload, alg)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			if alg != AlgorithmNone && len(compressed) >= len(payload) {
				t.Errorf("Expected repetitive payload to shrink under %s", alg)
			}

			decompressed, err := Decompress(compressed, alg)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Error("Round trip mismatch")
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmNone, false},
		{"none", AlgorithmNone, false},
		{"snappy", AlgorithmSnappy, false},
		{"zstd", AlgorithmZstd, false},
		{"gzip", AlgorithmGzip, false},
		{"brotli", AlgorithmNone, true},
	}

	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecompressCorruptInput(t *testing.T) {
	if _, err := Decompress([]byte("not a zstd frame"), AlgorithmZstd); err == nil {
		t.Error("Expected an error for corrupt zstd input")
	}
	if _, err := Decompress([]byte("not gzip"), AlgorithmGzip); err == nil {
		t.Error("Expected an error for corrupt gzip input")
	}
}
