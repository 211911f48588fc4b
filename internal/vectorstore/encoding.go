package vectorstore

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"

	"github.com/chirino/agent-memory/internal/model"
)

func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// encodeVector packs a float32 slice into the little-endian byte layout
// sqlite-vec and its compat shims expect (4 bytes per component), matching
// the wire format asg017/sqlite-vec-go-bindings uses for its BLOB columns.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func marshalGroups(groups model.StringSet) (string, error) {
	if groups == nil {
		groups = model.StringSet{}
	}
	b, err := json.Marshal(groups)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalGroups(s string) model.StringSet {
	var groups model.StringSet
	if s == "" {
		return groups
	}
	_ = json.Unmarshal([]byte(s), &groups)
	return groups
}
