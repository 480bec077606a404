package vm

import "fmt"

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

const noKey = -1

// Input tracks the keypad. pressed is the most recent key that went down
// and has not been consumed by a wait instruction or released; held has one
// bit per key currently down.
type Input struct {
	pressed int
	held    uint16
	waiting bool
}

func (in *Input) reset() {
	*in = Input{pressed: noKey}
}

func (in *Input) setKey(k Key) error {
	if k >= KeyCount {
		return fmt.Errorf("%w: key %d", ErrInvalidValue, k)
	}
	in.held |= 1 << k
	in.pressed = int(k)
	return nil
}

func (in *Input) clearKey(k Key) error {
	if k >= KeyCount {
		return fmt.Errorf("%w: key %d", ErrInvalidValue, k)
	}
	in.held &^= 1 << k
	if in.pressed == int(k) {
		in.pressed = noKey
	}
	return nil
}

func (in *Input) isHeld(k uint8) bool {
	return k < KeyCount && in.held&(1<<k) != 0
}

// takePressed returns and clears the pressed key.
func (in *Input) takePressed() (Key, bool) {
	if in.pressed == noKey {
		return 0, false
	}
	k := Key(in.pressed)
	in.pressed = noKey
	return k, true
}
