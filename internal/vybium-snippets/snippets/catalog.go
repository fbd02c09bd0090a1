// Package snippets lists every snippet the library ships.
package snippets

import (
	"sort"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/datatype"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/arithmetic/u32"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/arithmetic/u64"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/dynmalloc"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/hashing"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/io"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/list/safelist"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/list/unsafelist"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippets/mmr"
)

// ValueTypes are the types the io snippets are instantiated for
var ValueTypes = []datatype.DataType{
	datatype.Bool, datatype.U32, datatype.U64, datatype.U128,
	datatype.BFE, datatype.XFE, datatype.Digest,
}

// ElementTypes are the types the list snippets are instantiated for
var ElementTypes = []datatype.DataType{datatype.BFE, datatype.U64, datatype.XFE, datatype.Digest}

func lists(t datatype.DataType) []snippet.Snippet {
	return []snippet.Snippet{
		unsafelist.New{ElementType: t},
		unsafelist.Length{ElementType: t},
		unsafelist.SetLength{ElementType: t},
		unsafelist.Push{ElementType: t},
		unsafelist.Pop{ElementType: t},
		unsafelist.Get{ElementType: t},
		unsafelist.Set{ElementType: t},
		safelist.New{ElementType: t},
		safelist.Length{ElementType: t},
		safelist.Capacity{ElementType: t},
		safelist.Push{ElementType: t},
		safelist.Pop{ElementType: t},
		safelist.Get{ElementType: t},
		safelist.Set{ElementType: t},
	}
}

// All returns every snippet, sorted by entrypoint
func All() []snippet.Snippet {
	all := []snippet.Snippet{
		dynmalloc.DynMalloc{},
		u32.IsOdd{}, u32.IsU32{}, u32.SafeAdd{},
		u64.Incr{}, u64.Decr{}, u64.Eq{}, u64.Lt{}, u64.Add{}, u64.PopCount{},
		u64.ShiftRight{}, u64.Log2Floor{}, u64.Pow2{},
		hashing.HashPair{}, hashing.InitSponge{}, hashing.AbsorbPair{}, hashing.SqueezeScalar{},
		mmr.NumPeaks{}, mmr.LeftmostAncestor{}, mmr.RightChildAndHeight{}, mmr.CalculateNewPeaksFromAppend{},
	}
	for _, t := range ValueTypes {
		all = append(all, io.ReadInput{Type: t}, io.DivineValue{Type: t}, io.WriteOutput{Type: t})
	}
	for _, t := range ElementTypes {
		all = append(all, lists(t)...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Entrypoint() < all[j].Entrypoint() })
	return all
}

// Lookup returns the snippet with the given entrypoint
func Lookup(entrypoint string) (snippet.Snippet, bool) {
	for _, s := range All() {
		if s.Entrypoint() == entrypoint {
			return s, true
		}
	}
	return nil, false
}
