package bundle

import (
	"encoding/hex"
	"hash"
	"slices"

	"lukechampine.com/blake3"

	"github.com/MartianZoo/solarnet-sub002/internal/declaration"
)

type fingerprint struct {
	h hash.Hash
}

func newFingerprint() *fingerprint {
	return &fingerprint{h: blake3.New(32, nil)}
}

// add hashes one named part; names and contents are NUL-terminated so that
// moving bytes between them changes the sum
func (f *fingerprint) add(name string, data []byte) {
	f.h.Write([]byte(name))
	f.h.Write([]byte{0})
	f.h.Write(data)
	f.h.Write([]byte{0})
}

func (f *fingerprint) sum() string {
	return hex.EncodeToString(f.h.Sum(nil))
}

// Fingerprint hashes the declarations an authority serves, independent of the
// files they came from and of declaration order
func Fingerprint(authority declaration.Authority) (string, error) {
	names := slices.Sorted(slices.Values(authority.AllClassNames()))
	f := newFingerprint()
	for _, name := range names {
		d, err := authority.ClassDeclaration(name)
		if err != nil {
			return "", err
		}
		f.add(string(name), []byte(canonical(d)))
	}
	return f.sum(), nil
}

// canonical renders everything a declaration says, one item per line
func canonical(d *declaration.ClassDeclaration) string {
	e := entryFor(d)
	out := e.Class + "\n" + e.Doc + "\n"
	for _, group := range [][]string{e.Has, e.Defaults, e.Effects} {
		for _, item := range group {
			out += item + "\n"
		}
		out += "\n"
	}
	return out
}
