package scoredata

import (
	"bytes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/park285/rhythm-score-server/internal/domain"
)

const keyPrefix = "osu!-scoreburgr---------"

// Payload is the raw encrypted submission as received on the wire.
// All three blobs are standard base64.
type Payload struct {
	ScoreData     []byte
	ClientHash    []byte
	IV            []byte
	ClientVersion string
}

// Decoded holds the plaintext submission fields.
type Decoded struct {
	Fields         []string
	PathHash       string
	SecondaryToken string
}

// Header is the first two fields of the score data.
type Header struct {
	MapHash  string
	Username string
}

// Decode decrypts both blobs with the version-derived key.
func Decode(p Payload) (*Decoded, error) {
	block, err := NewCipher([]byte(keyPrefix + p.ClientVersion))
	if err != nil {
		return nil, fmt.Errorf("%w: key", domain.ErrDecode)
	}
	iv, err := decodeB64(p.IV)
	if err != nil || len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("%w: iv", domain.ErrDecode)
	}

	scoreData, err := decryptB64(block, iv, p.ScoreData)
	if err != nil {
		return nil, fmt.Errorf("%w: score data", domain.ErrDecode)
	}
	clientHash, err := decryptB64(block, iv, p.ClientHash)
	if err != nil {
		return nil, fmt.Errorf("%w: client hash", domain.ErrDecode)
	}

	d := &Decoded{Fields: strings.Split(string(scoreData), ":")}
	ch := string(clientHash)
	if path, rest, ok := strings.Cut(ch, ":"); ok {
		d.PathHash, d.SecondaryToken = path, rest
	} else {
		d.PathHash = ch
	}
	return d, nil
}

// Header returns the map hash and trimmed player name.
func (d *Decoded) Header() (Header, error) {
	if len(d.Fields) < 2 {
		return Header{}, fmt.Errorf("%w: score data has %d fields", domain.ErrDecode, len(d.Fields))
	}
	return Header{MapHash: d.Fields[0], Username: strings.TrimSpace(d.Fields[1])}, nil
}

// ScoreFields returns the fields after the header.
func (d *Decoded) ScoreFields() []string {
	if len(d.Fields) < 2 {
		return nil
	}
	return d.Fields[2:]
}

// Encrypt produces a base64 payload the way the client does. Used by tooling and tests.
func Encrypt(clientVersion string, iv, plaintext []byte) (string, error) {
	block, err := NewCipher([]byte(keyPrefix + clientVersion))
	if err != nil {
		return "", err
	}
	if len(iv) != block.BlockSize() {
		return "", fmt.Errorf("iv must be %d bytes", block.BlockSize())
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func decryptB64(block cipher.Block, iv, in []byte) ([]byte, error) {
	ct, err := decodeB64(in)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(ct) == 0 || len(ct)%bs != 0 {
		return nil, fmt.Errorf("ciphertext length %d", len(ct))
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	return pkcs7Unpad(pt, bs)
}

func decodeB64(in []byte) ([]byte, error) {
	in = bytes.TrimSpace(in)
	out := make([]byte, base64.StdEncoding.DecodedLen(len(in)))
	n, err := base64.StdEncoding.Decode(out, in)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func pkcs7Pad(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, bs int) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > bs || n > len(b) {
		return nil, fmt.Errorf("bad padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
