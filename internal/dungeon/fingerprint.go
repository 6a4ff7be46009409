package dungeon

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex blake2b-256 digest of the grid's size, tile
// kinds and trace. Two runs that produced the same dungeon in the same order
// share a fingerprint.
func Fingerprint(g *Grid, trace Trace) string {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes

	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}

	writeInt(g.Width)
	writeInt(g.Height)
	kinds := make([]byte, len(g.Kinds))
	for i, k := range g.Kinds {
		kinds[i] = byte(k)
	}
	h.Write(kinds)

	writeInt(len(trace))
	for _, e := range trace {
		writeInt(e.X)
		writeInt(e.Y)
		writeInt(int(e.Kind))
	}

	return hex.EncodeToString(h.Sum(nil))
}
