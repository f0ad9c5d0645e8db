package sourcemap

import "github.com/pkg/errors"

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Index = func() (table [256]int8) {
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(base64Chars); i++ {
		table[base64Chars[i]] = int8(i)
	}
	return table
}()

// A VLQ digit carries five value bits; bit 5 says another digit follows.
// The lowest bit of the first digit is the sign.
const (
	vlqShift    = 5
	vlqMask     = 1<<vlqShift - 1
	vlqContinue = 1 << vlqShift
)

// appendVLQ appends the base64 VLQ encoding of v to dst.
func appendVLQ(dst []byte, v int) []byte {
	var u uint64
	if v < 0 {
		u = uint64(-v)<<1 | 1
	} else {
		u = uint64(v) << 1
	}
	for {
		digit := u & vlqMask
		u >>= vlqShift
		if u != 0 {
			digit |= vlqContinue
		}
		dst = append(dst, base64Chars[digit])
		if u == 0 {
			return dst
		}
	}
}

// readVLQ decodes one value from the start of s and returns it with the
// number of bytes read.
func readVLQ(s string) (int, int, error) {
	var u uint64
	var shift uint
	for i := 0; i < len(s); i++ {
		digit := base64Index[s[i]]
		if digit < 0 {
			return 0, 0, errors.Errorf("invalid base64 character %q", s[i])
		}
		if shift > 60 {
			return 0, 0, errors.New("VLQ value overflows")
		}
		u |= uint64(digit&vlqMask) << shift
		shift += vlqShift
		if digit&vlqContinue == 0 {
			v := int(u >> 1)
			if u&1 != 0 {
				v = -v
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("truncated VLQ value")
}
