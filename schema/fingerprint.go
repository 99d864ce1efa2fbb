package schema

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a deterministic 64-bit digest of a schema declaration.
type Fingerprint uint64

// FingerprintOf hashes a list of store schemas with BLAKE2b. Store order
// and index order do not affect the result, so a declaration and the
// catalog read back from storage hash identically.
func FingerprintOf(stores []StoreSchema) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(canonical(stores)))
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// canonical renders stores in a stable textual form for hashing.
func canonical(stores []StoreSchema) string {
	sorted := CloneAll(stores)
	slices.SortFunc(sorted, func(a, b StoreSchema) int { return strings.Compare(a.Name, b.Name) })

	var sb strings.Builder
	for _, s := range sorted {
		sb.WriteString("store(")
		writeField(&sb, s.Name)
		writeField(&sb, strings.Join(s.Key.KeyPath, "\x1f"))
		writeBool(&sb, s.Key.AutoIncrement)
		idx := slices.Clone(s.Indexes)
		slices.SortFunc(idx, func(a, b IndexSchema) int { return strings.Compare(a.Name, b.Name) })
		for _, i := range idx {
			sb.WriteString("index(")
			writeField(&sb, i.Name)
			writeField(&sb, strings.Join(i.KeyPath, "\x1f"))
			writeBool(&sb, i.Unique)
			writeBool(&sb, i.MultiEntry)
			sb.WriteString(")")
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func writeField(sb *strings.Builder, s string) {
	var n [binary.MaxVarintLen64]byte
	sb.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
	sb.WriteString(s)
}

func writeBool(sb *strings.Builder, b bool) {
	if b {
		sb.WriteByte('1')
		return
	}
	sb.WriteByte('0')
}
