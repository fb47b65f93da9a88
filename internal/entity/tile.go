package entity

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxZoom bounds z so that 1<<z stays well inside a signed 32-bit int.
const MaxZoom = 30

var ErrMalformedCoordinate = errors.New("malformed tile coordinate")

// TileCoordinate addresses a tile in the slippy-map (XYZ) scheme, row 0 at the top.
type TileCoordinate struct {
	Z int
	X int
	Y int
}

func (c TileCoordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

func (c TileCoordinate) Valid() bool {
	if c.Z < 0 || c.Z > MaxZoom {
		return false
	}
	size := 1 << c.Z
	return c.X >= 0 && c.X < size && c.Y >= 0 && c.Y < size
}

// StorageRow is the TMS row (row 0 at the bottom) under which the archive keeps this tile.
func (c TileCoordinate) StorageRow() int {
	return FlipRow(c.Z, c.Y)
}

// FlipRow converts between XYZ and TMS row numbering. Applying it twice yields the input.
func FlipRow(z, row int) int {
	return (1 << z) - 1 - row
}

// ParseTileCoordinate accepts plain base-10 digits only: no sign, no whitespace.
func ParseTileCoordinate(z, x, y string) (TileCoordinate, error) {
	zi, err := parseUint(z)
	if err != nil {
		return TileCoordinate{}, fmt.Errorf("%w: z=%q", ErrMalformedCoordinate, z)
	}
	xi, err := parseUint(x)
	if err != nil {
		return TileCoordinate{}, fmt.Errorf("%w: x=%q", ErrMalformedCoordinate, x)
	}
	yi, err := parseUint(y)
	if err != nil {
		return TileCoordinate{}, fmt.Errorf("%w: y=%q", ErrMalformedCoordinate, y)
	}

	c := TileCoordinate{Z: zi, X: xi, Y: yi}
	if !c.Valid() {
		return TileCoordinate{}, fmt.Errorf("%w: %s out of range", ErrMalformedCoordinate, c)
	}

	return c, nil
}

func parseUint(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	// 32 bits is plenty: anything wider fails the range check anyway.
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
