package embedding

import (
	"testing"
)

func TestPreprocess_OutputShape(t *testing.T) {
	pixels, err := Preprocess(testImage(t), 32)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if len(pixels) != 32*32*3 {
		t.Errorf("expected %d values, got %d", 32*32*3, len(pixels))
	}
}

func TestPreprocess_NormalizedRange(t *testing.T) {
	pixels, err := Preprocess(testImage(t), 16)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	for i, v := range pixels {
		if v < 0 || v > 1 {
			t.Fatalf("pixel %d out of [0,1] range: %v", i, v)
		}
	}
}

func TestPreprocess_InvalidData(t *testing.T) {
	if _, err := Preprocess([]byte("garbage"), 16); err == nil {
		t.Error("expected error for invalid image data")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"GIF", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"WebP", []byte{0x52, 0x49, 0x46, 0x46, 0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"Unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
		{"TooShort", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMIMEType(tc.data); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}
