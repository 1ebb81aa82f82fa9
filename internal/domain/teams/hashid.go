package teams

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	hashids "github.com/speps/go-hashids/v2"
)

const hashIDMinLength = 10

var (
	hashMu   sync.RWMutex
	hashSalt = "flowhost"
	encoder  *hashids.HashID
)

// SetHashIDSalt must be called once at startup, before any team id is
// encoded. Changing the salt later would invalidate every external id.
func SetHashIDSalt(salt string) {
	hashMu.Lock()
	defer hashMu.Unlock()
	if strings.TrimSpace(salt) != "" {
		hashSalt = salt
	}
	encoder = nil
}

func hashEncoder() *hashids.HashID {
	hashMu.Lock()
	defer hashMu.Unlock()
	if encoder == nil {
		hd := hashids.NewData()
		hd.Salt = hashSalt
		hd.MinLength = hashIDMinLength
		h, err := hashids.NewWithData(hd)
		if err != nil {
			// only possible with a broken alphabet, which we never set
			panic(err)
		}
		encoder = h
	}
	return encoder
}

// EncodeID converts an internal team id to its external hashid form.
func EncodeID(id uint) string {
	s, err := hashEncoder().Encode([]int{int(id)})
	if err != nil {
		return ""
	}
	return s
}

// DecodeID converts an external hashid back to the internal team id.
// The hashid alphabet decodes almost any short string to *something*,
// so the result is validated by re-encoding.
func DecodeID(ref string) (uint, error) {
	ids, err := hashEncoder().DecodeWithError(ref)
	if err != nil || len(ids) != 1 || ids[0] < 0 {
		return 0, fmt.Errorf("invalid team id %q", ref)
	}
	if EncodeID(uint(ids[0])) != ref {
		return 0, fmt.Errorf("invalid team id %q", ref)
	}
	return uint(ids[0]), nil
}

// ParseRef resolves a team reference that may be either the external
// hashid or a raw numeric id (internal callers).
func ParseRef(ref string) (uint, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty team id")
	}
	if id, err := DecodeID(ref); err == nil {
		return id, nil
	}
	if n, err := strconv.ParseUint(ref, 10, 64); err == nil && n > 0 {
		return uint(n), nil
	}
	return 0, fmt.Errorf("invalid team id %q", ref)
}
