package scoredata

import (
	"bytes"
	"crypto/aes"
	"testing"
)

func TestSboxKnownEntries(t *testing.T) {
	if sbox[0x00] != 0x63 || sbox[0x01] != 0x7c || sbox[0x53] != 0xed {
		t.Fatalf("sbox mismatch: %02x %02x %02x", sbox[0], sbox[1], sbox[0x53])
	}
	if invSbox[0x63] != 0x00 || invSbox[0xed] != 0x53 {
		t.Fatalf("inverse sbox mismatch")
	}
}

// With a 128-bit block Rijndael is AES, which gives a reference to compare against.
func TestRijndael128MatchesAES(t *testing.T) {
	for _, keyLen := range []int{16, 24, 32} {
		key := make([]byte, keyLen)
		for i := range key {
			key[i] = byte(i*7 + 1)
		}
		ref, err := aes.NewCipher(key)
		if err != nil {
			t.Fatalf("aes.NewCipher: %v", err)
		}
		c, err := newRijndael(key, 16)
		if err != nil {
			t.Fatalf("newRijndael: %v", err)
		}
		src := []byte("0123456789abcdef")
		want := make([]byte, 16)
		got := make([]byte, 16)
		ref.Encrypt(want, src)
		c.Encrypt(got, src)
		if !bytes.Equal(want, got) {
			t.Fatalf("key=%d encrypt mismatch\nwant %x\ngot  %x", keyLen, want, got)
		}
		back := make([]byte, 16)
		c.Decrypt(back, got)
		if !bytes.Equal(back, src) {
			t.Fatalf("key=%d decrypt mismatch", keyLen)
		}
	}
}

func TestRijndael256RoundTrip(t *testing.T) {
	c, err := NewCipher([]byte("osu!-scoreburgr---------20240101"))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	if c.BlockSize() != 32 {
		t.Fatalf("block size=%d", c.BlockSize())
	}
	src := bytes.Repeat([]byte{0xa5, 0x11}, 16)
	ct := make([]byte, 32)
	c.Encrypt(ct, src)
	if bytes.Equal(ct, src) {
		t.Fatalf("ciphertext equals plaintext")
	}
	pt := make([]byte, 32)
	c.Decrypt(pt, ct)
	if !bytes.Equal(pt, src) {
		t.Fatalf("roundtrip mismatch")
	}
}

func TestNewCipherRejectsBadKey(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Fatalf("expected error for 5-byte key")
	}
}
