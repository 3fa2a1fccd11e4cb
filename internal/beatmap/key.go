package beatmap

import (
	"strconv"
	"strings"
)

// Key identifies a beatmap by content hash or by numeric id. Exactly one is set.
type Key struct {
	Hash string
	ID   int64
}

func ByHash(md5 string) Key { return Key{Hash: strings.ToLower(strings.TrimSpace(md5))} }

func ByID(id int64) Key { return Key{ID: id} }

// ParseKey reads an invalidation payload: a numeric id or a content hash.
func ParseKey(payload string) Key {
	payload = strings.TrimSpace(payload)
	if n, err := strconv.ParseInt(payload, 10, 64); err == nil && len(payload) < 32 {
		return ByID(n)
	}
	return ByHash(payload)
}

func (k Key) String() string {
	if k.Hash != "" {
		return "md5:" + k.Hash
	}
	return "id:" + strconv.FormatInt(k.ID, 10)
}

func (k Key) valid() bool { return k.Hash != "" || k.ID > 0 }
