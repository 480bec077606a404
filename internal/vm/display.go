package vm

import "fmt"

// Display is the 64x32 one-bit framebuffer, stored row-major.
type Display struct {
	gfx Frame
}

// Frame is a copy of the framebuffer. Being a value, it never changes
// under a renderer once taken.
type Frame [ScreenWidth * ScreenHeight]uint8

// At reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (f Frame) At(x, y int) bool {
	return f[getScreenAddr(x, y)] != 0
}

// Lit counts lit pixels.
func (f Frame) Lit() int {
	n := 0
	for _, px := range f {
		n += int(px)
	}
	return n
}

// Frame returns a copy of the screen.
func (d *Display) Frame() Frame {
	return d.gfx
}

func (d *Display) Clear() {
	d.gfx = Frame{}
}

// SetPixel writes a single pixel. Unlike DrawSprite it does not wrap.
func (d *Display) SetPixel(x, y int, bit uint8) error {
	if !onScreen(x, y) {
		return coordError(x, y)
	}
	if bit > 1 {
		return fmt.Errorf("%w: pixel value %d", ErrInvalidValue, bit)
	}
	d.gfx[y*ScreenWidth+x] = bit
	return nil
}

func (d *Display) Pixel(x, y int) (uint8, error) {
	if !onScreen(x, y) {
		return 0, coordError(x, y)
	}
	return d.gfx[y*ScreenWidth+x], nil
}

// DrawSprite XORs rows onto the screen with its top-left corner at (x, y).
// Every row is 8 pixels wide and wraps around both edges. It reports whether
// any lit pixel was turned off.
func (d *Display) DrawSprite(x, y int, rows []byte) bool {
	collision := false
	for r, row := range rows {
		bits, _ := DecodeRowBits(int(row))
		for b, bit := range bits {
			addr := getScreenAddr(x+b, y+r)
			if d.gfx[addr]&bit != 0 {
				collision = true
			}
			d.gfx[addr] ^= bit
		}
	}
	return collision
}

// DecodeRowBits splits a sprite row into 8 pixels, most significant bit first.
func DecodeRowBits(v int) ([8]uint8, error) {
	var bits [8]uint8
	if v < 0 || v > 0xFF {
		return bits, fmt.Errorf("%w: sprite row %d", ErrInvalidValue, v)
	}
	for i := range bits {
		bits[i] = uint8(v>>(7-i)) & 1
	}
	return bits, nil
}

func onScreen(x, y int) bool {
	return x >= 0 && x < ScreenWidth && y >= 0 && y < ScreenHeight
}

func coordError(x, y int) error {
	return fmt.Errorf("%w: (%d, %d)", ErrCoordinate, x, y)
}

func getScreenAddr(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}

	return ScreenWidth*y + x
}
