package entity

import (
	"errors"
	"testing"
)

func TestFlipRowIsInvolution(t *testing.T) {
	for z := 0; z <= 20; z++ {
		size := 1 << z
		step := 1
		if size > 4096 {
			step = size / 4096
		}
		for y := 0; y < size; y += step {
			row := FlipRow(z, y)
			if row < 0 || row >= size {
				t.Fatalf("z=%d y=%d: storage row %d outside [0,%d)", z, y, row, size)
			}
			if back := FlipRow(z, row); back != y {
				t.Fatalf("z=%d y=%d: flipped twice to %d", z, y, back)
			}
		}
		// edges are always covered regardless of step
		if FlipRow(z, 0) != size-1 || FlipRow(z, size-1) != 0 {
			t.Fatalf("z=%d: edge rows not swapped", z)
		}
	}
}

func TestStorageRow(t *testing.T) {
	tests := []struct {
		coord TileCoordinate
		want  int
	}{
		{TileCoordinate{Z: 0, X: 0, Y: 0}, 0},
		{TileCoordinate{Z: 2, X: 3, Y: 1}, 2},
		{TileCoordinate{Z: 2, X: 0, Y: 3}, 0},
		{TileCoordinate{Z: 14, X: 8000, Y: 7000}, 16383 - 7000},
	}

	for _, tt := range tests {
		if got := tt.coord.StorageRow(); got != tt.want {
			t.Errorf("%s: got storage row %d, want %d", tt.coord, got, tt.want)
		}
	}
}

func TestParseTileCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		z, x, y string
		want    TileCoordinate
		wantErr bool
	}{
		{name: "origin", z: "0", x: "0", y: "0", want: TileCoordinate{}},
		{name: "regular", z: "14", x: "8716", y: "7936", want: TileCoordinate{Z: 14, X: 8716, Y: 7936}},
		{name: "leading zeros", z: "02", x: "01", y: "03", want: TileCoordinate{Z: 2, X: 1, Y: 3}},
		{name: "letters", z: "a", x: "1", y: "1", wantErr: true},
		{name: "sign", z: "+1", x: "0", y: "0", wantErr: true},
		{name: "negative", z: "1", x: "-1", y: "0", wantErr: true},
		{name: "empty", z: "1", x: "", y: "0", wantErr: true},
		{name: "space", z: "1", x: "0", y: " 0", wantErr: true},
		{name: "x out of range", z: "1", x: "2", y: "0", wantErr: true},
		{name: "y out of range", z: "3", x: "0", y: "8", wantErr: true},
		{name: "zoom too deep", z: "31", x: "0", y: "0", wantErr: true},
		{name: "overflow", z: "99999999999999999999", x: "0", y: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTileCoordinate(tt.z, tt.x, tt.y)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedCoordinate) {
					t.Fatalf("expected ErrMalformedCoordinate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
