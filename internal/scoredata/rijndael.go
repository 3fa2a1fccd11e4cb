package scoredata

import (
	"crypto/cipher"
	"fmt"
)

// Rijndael with a configurable block size. The legacy client encrypts with a
// 256-bit block, which crypto/aes does not offer.

var (
	sbox    [256]byte
	invSbox [256]byte
)

func init() {
	// Walk the multiplicative group with generator 3, applying the affine map.
	p, q := byte(1), byte(1)
	for {
		p = p ^ (p << 1) ^ byte(int(p>>7)*0x1b)

		q ^= q << 1
		q ^= q << 2
		q ^= q << 4
		if q&0x80 != 0 {
			q ^= 0x09
		}

		x := q ^ rotl8(q, 1) ^ rotl8(q, 2) ^ rotl8(q, 3) ^ rotl8(q, 4)
		sbox[p] = x ^ 0x63
		if p == 1 {
			break
		}
	}
	sbox[0] = 0x63
	for i, v := range sbox {
		invSbox[v] = byte(i)
	}
}

func rotl8(x byte, n uint) byte { return x<<n | x>>(8-n) }

func xtime(b byte) byte {
	if b&0x80 != 0 {
		return b<<1 ^ 0x1b
	}
	return b << 1
}

func gmul(a, b byte) byte {
	var out byte
	for b != 0 {
		if b&1 != 0 {
			out ^= a
		}
		a = xtime(a)
		b >>= 1
	}
	return out
}

type rijndael struct {
	nb     int // block size in 32-bit columns
	nr     int
	shifts [4]int
	rk     []uint32
}

// NewCipher returns a Rijndael block cipher with a 32-byte block.
// key must be 16, 24 or 32 bytes.
func NewCipher(key []byte) (cipher.Block, error) {
	return newRijndael(key, 32)
}

func newRijndael(key []byte, blockSize int) (*rijndael, error) {
	nk := len(key) / 4
	if len(key)%4 != 0 || (nk != 4 && nk != 6 && nk != 8) {
		return nil, fmt.Errorf("rijndael: invalid key size %d", len(key))
	}
	nb := blockSize / 4
	var shifts [4]int
	switch nb {
	case 4, 6:
		shifts = [4]int{0, 1, 2, 3}
	case 8:
		shifts = [4]int{0, 1, 3, 4}
	default:
		return nil, fmt.Errorf("rijndael: invalid block size %d", blockSize)
	}
	nr := max(nb, nk) + 6
	c := &rijndael{nb: nb, nr: nr, shifts: shifts}
	c.expandKey(key, nk)
	return c, nil
}

func (c *rijndael) expandKey(key []byte, nk int) {
	total := c.nb * (c.nr + 1)
	w := make([]uint32, total)
	for i := 0; i < nk; i++ {
		w[i] = uint32(key[4*i])<<24 | uint32(key[4*i+1])<<16 | uint32(key[4*i+2])<<8 | uint32(key[4*i+3])
	}
	rcon := byte(1)
	for i := nk; i < total; i++ {
		t := w[i-1]
		switch {
		case i%nk == 0:
			t = subWord(t<<8|t>>24) ^ uint32(rcon)<<24
			rcon = xtime(rcon)
		case nk > 6 && i%nk == 4:
			t = subWord(t)
		}
		w[i] = w[i-nk] ^ t
	}
	c.rk = w
}

func subWord(w uint32) uint32 {
	return uint32(sbox[w>>24])<<24 | uint32(sbox[w>>16&0xff])<<16 | uint32(sbox[w>>8&0xff])<<8 | uint32(sbox[w&0xff])
}

func (c *rijndael) BlockSize() int { return 4 * c.nb }

// 상태 배치: (행 r, 열 col) 바이트는 인덱스 r + 4*col.

func (c *rijndael) addRoundKey(s []byte, round int) {
	for col := 0; col < c.nb; col++ {
		k := c.rk[round*c.nb+col]
		s[4*col] ^= byte(k >> 24)
		s[4*col+1] ^= byte(k >> 16)
		s[4*col+2] ^= byte(k >> 8)
		s[4*col+3] ^= byte(k)
	}
}

func (c *rijndael) shiftRows(s []byte, inverse bool) {
	var tmp [32]byte
	for r := 1; r < 4; r++ {
		sh := c.shifts[r]
		for col := 0; col < c.nb; col++ {
			src := (col + sh) % c.nb
			if inverse {
				tmp[r+4*src] = s[r+4*col]
			} else {
				tmp[r+4*col] = s[r+4*src]
			}
		}
		for col := 0; col < c.nb; col++ {
			s[r+4*col] = tmp[r+4*col]
		}
	}
}

func mixColumn(a []byte) {
	a0, a1, a2, a3 := a[0], a[1], a[2], a[3]
	a[0] = gmul(a0, 2) ^ gmul(a1, 3) ^ a2 ^ a3
	a[1] = a0 ^ gmul(a1, 2) ^ gmul(a2, 3) ^ a3
	a[2] = a0 ^ a1 ^ gmul(a2, 2) ^ gmul(a3, 3)
	a[3] = gmul(a0, 3) ^ a1 ^ a2 ^ gmul(a3, 2)
}

func invMixColumn(a []byte) {
	a0, a1, a2, a3 := a[0], a[1], a[2], a[3]
	a[0] = gmul(a0, 14) ^ gmul(a1, 11) ^ gmul(a2, 13) ^ gmul(a3, 9)
	a[1] = gmul(a0, 9) ^ gmul(a1, 14) ^ gmul(a2, 11) ^ gmul(a3, 13)
	a[2] = gmul(a0, 13) ^ gmul(a1, 9) ^ gmul(a2, 14) ^ gmul(a3, 11)
	a[3] = gmul(a0, 11) ^ gmul(a1, 13) ^ gmul(a2, 9) ^ gmul(a3, 14)
}

func (c *rijndael) Encrypt(dst, src []byte) {
	bs := c.BlockSize()
	if len(src) < bs || len(dst) < bs {
		panic("rijndael: input not full block")
	}
	var buf [32]byte
	s := buf[:bs]
	copy(s, src)

	c.addRoundKey(s, 0)
	for round := 1; round <= c.nr; round++ {
		for i := range s {
			s[i] = sbox[s[i]]
		}
		c.shiftRows(s, false)
		if round != c.nr {
			for col := 0; col < c.nb; col++ {
				mixColumn(s[4*col : 4*col+4])
			}
		}
		c.addRoundKey(s, round)
	}
	copy(dst, s)
}

func (c *rijndael) Decrypt(dst, src []byte) {
	bs := c.BlockSize()
	if len(src) < bs || len(dst) < bs {
		panic("rijndael: input not full block")
	}
	var buf [32]byte
	s := buf[:bs]
	copy(s, src)

	c.addRoundKey(s, c.nr)
	for round := c.nr - 1; round >= 0; round-- {
		c.shiftRows(s, true)
		for i := range s {
			s[i] = invSbox[s[i]]
		}
		c.addRoundKey(s, round)
		if round != 0 {
			for col := 0; col < c.nb; col++ {
				invMixColumn(s[4*col : 4*col+4])
			}
		}
	}
	copy(dst, s)
}
