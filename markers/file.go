package markers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/mmap"
)

// LoadFile reads a JSON array of cafes, zstd-compressed when name ends in ".zst".
func LoadFile(name string) ([]Cafe, error) {
	file, err := mmap.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open markers file: %w", err)
	}
	defer file.Close()

	var r io.Reader = io.NewSectionReader(file, 0, int64(file.Len()))
	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return Decode(r)
}

func Decode(r io.Reader) ([]Cafe, error) {
	var cafes []Cafe
	if err := json.NewDecoder(r).Decode(&cafes); err != nil {
		return nil, fmt.Errorf("error decoding cafes: %w", err)
	}
	return cafes, nil
}

// SaveFile writes cafes as JSON, zstd-compressed when name ends in ".zst".
func SaveFile(name string, cafes []Cafe) error {
	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	var enc *zstd.Encoder
	if strings.HasSuffix(name, ".zst") {
		enc, err = zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = enc
	}

	if err := json.NewEncoder(w).Encode(cafes); err != nil {
		return fmt.Errorf("failed to encode cafes: %w", err)
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to close encoder: %w", err)
		}
	}
	return file.Close()
}
