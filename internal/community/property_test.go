package community

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPath() gopter.Gen {
	return gen.SliceOfN(3, gen.OneConstOf("a", "b", "c", "d")).
		Map(func(parts []string) string { return strings.Join(parts, "/") })
}

func genFiles() gopter.Gen {
	return gen.SliceOf(gen.OneGenOf(genPath(), gen.OneConstOf("root.js", "x/y.js", "z.js")))
}

// TestBaselineInvariants checks totality of the path-based grouping.
func TestBaselineInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every file lands in exactly one community", prop.ForAll(
		func(files []string) bool {
			p := GroupByTopDirectory(files)
			distinct := make(map[string]bool)
			for _, f := range files {
				distinct[f] = true
			}
			seen := 0
			for _, id := range p.IDs() {
				seen += p.Size(id)
			}
			return seen == len(distinct) && p.FileCount() == len(distinct)
		},
		genFiles(),
	))

	properties.Property("community id is the first directory segment", prop.ForAll(
		func(files []string) bool {
			p := GroupByTopDirectory(files)
			for _, f := range files {
				id, ok := p.CommunityOf(f)
				if !ok {
					return false
				}
				want := ""
				if i := strings.LastIndex(f, "/"); i >= 0 {
					want = strings.Split(f[:i], "/")[0]
				}
				if id != want {
					return false
				}
			}
			return true
		},
		genFiles(),
	))

	properties.TestingRun(t)
}
