package keyseq

import "fmt"

// Bytes encodes the chord the way a terminal transmits it: Control maps
// letters and @[\]^_ into the C0 range (C-? is DEL), Meta sets the eighth
// bit. Function keys have no such encoding.
func (c Chord) Bytes() ([]byte, error) {
	var b byte
	switch c.Key {
	case KeyRune:
		if c.Rune > 0x7f {
			if c.Mods != ModNone {
				return nil, fmt.Errorf("%w: %s", ErrNotEncodable, c)
			}
			return []byte(string(c.Rune)), nil
		}
		b = byte(c.Rune)
		if c.Mods.Has(ModCtrl) {
			cb, ok := controlByte(b)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotEncodable, c)
			}
			b = cb
		}
	case KeyEnter:
		b = '\r'
	case KeyTab:
		b = '\t'
	case KeyEscape:
		b = 0x1b
	case KeyBackspace:
		b = 0x7f
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotEncodable, c)
	}

	if c.Mods.Has(ModMeta) {
		b |= 0x80
	}
	return []byte{b}, nil
}

// controlByte folds an ASCII byte into its Control code.
func controlByte(b byte) (byte, bool) {
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	switch {
	case b == '?':
		return 0x7f, true
	case b >= '@' && b <= '_':
		return b - '@', true
	case b == ' ':
		return 0, true
	}
	return 0, false
}

// Bytes encodes the whole sequence by concatenating chord encodings.
func (s Sequence) Bytes() ([]byte, error) {
	var out []byte
	for _, c := range s {
		b, err := c.Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
