package limits

import (
	"errors"
	"testing"
)

// TestValidateDimensions tests frame size validation at the boundaries
func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantErr       error
	}{
		{name: "smallest frame", width: 1, height: 1},
		{name: "vga", width: 640, height: 480},
		{name: "max dimension", width: MaxDimension, height: MaxDimension},
		{name: "zero width", width: 0, height: 480, wantErr: ErrInvalidDimensions},
		{name: "negative height", width: 640, height: -1, wantErr: ErrInvalidDimensions},
		{name: "too wide", width: MaxDimension + 1, height: 16, wantErr: ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimensions(tt.width, tt.height)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDimensions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFPS(t *testing.T) {
	for _, fps := range []int{1, 30, MaxFPS} {
		if err := ValidateFPS(fps); err != nil {
			t.Errorf("ValidateFPS(%d) = %v, want nil", fps, err)
		}
	}
	for _, fps := range []int{0, -30, MaxFPS + 1} {
		if err := ValidateFPS(fps); !errors.Is(err, ErrInvalidFPS) {
			t.Errorf("ValidateFPS(%d) = %v, want ErrInvalidFPS", fps, err)
		}
	}
}

// TestValidatePayloadSize tests the generic payload size validation function
func TestValidatePayloadSize(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		maxSize int
		wantErr error
	}{
		{name: "nil payload", data: nil, maxSize: 100, wantErr: ErrPayloadEmpty},
		{name: "empty payload", data: []byte{}, maxSize: 100, wantErr: ErrPayloadEmpty},
		{name: "within limit", data: make([]byte, 50), maxSize: 100},
		{name: "at exact limit", data: make([]byte, 100), maxSize: 100},
		{name: "exceeds limit", data: make([]byte, 101), maxSize: 100, wantErr: ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayloadSize(tt.data, tt.maxSize)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePayloadSize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMTU(t *testing.T) {
	if err := ValidateMTU(DefaultMTU, 24); err != nil {
		t.Errorf("ValidateMTU(DefaultMTU) = %v", err)
	}
	if err := ValidateMTU(24, 24); !errors.Is(err, ErrMTUTooSmall) {
		t.Errorf("ValidateMTU(24, 24) = %v, want ErrMTUTooSmall", err)
	}
	if err := ValidateMTU(MaxDatagram+1, 24); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("ValidateMTU(oversized) = %v, want ErrPayloadTooLarge", err)
	}
}

func TestPacketCount(t *testing.T) {
	cases := map[[2]int]int{
		{0, 1176}:    1,
		{1, 1176}:    1,
		{1176, 1176}: 1,
		{1177, 1176}: 2,
		{5000, 1000}: 5,
	}
	for in, want := range cases {
		if got := PacketCount(in[0], in[1]); got != want {
			t.Errorf("PacketCount(%d, %d) = %d, want %d", in[0], in[1], got, want)
		}
	}
}

// TestConstantConsistency verifies internal consistency of the size constants
func TestConstantConsistency(t *testing.T) {
	if DefaultMTU >= MaxDatagram {
		t.Errorf("DefaultMTU (%d) should be < MaxDatagram (%d)", DefaultMTU, MaxDatagram)
	}
	if MaxFramePayload <= MaxDatagram {
		t.Errorf("MaxFramePayload (%d) should be > MaxDatagram (%d)", MaxFramePayload, MaxDatagram)
	}
}

// BenchmarkValidateFramePayload benchmarks frame payload validation performance
func BenchmarkValidateFramePayload(b *testing.B) {
	data := make([]byte, 64*1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ValidateFramePayload(data)
	}
}
