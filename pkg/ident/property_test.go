package ident

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genRawSpelling produces strings shaped like the identifiers the scanner and
// import parser actually emit: dotted names, slash paths, index files, and
// mixtures of all three.
func genRawSpelling() gopter.Gen {
	segment := gen.RegexMatch(`[a-z_][a-z0-9_]{0,8}`)
	return gen.SliceOfN(3, segment).FlatMap(func(v any) gopter.Gen {
		segs := v.([]string)
		return gen.OneConstOf(
			strings.Join(segs, "/"),
			strings.Join(segs, "."),
			strings.Join(segs, "/")+".py",
			strings.Join(segs, "/")+"/__init__.py",
			strings.Join(segs, ".")+".__init__",
			"./"+strings.Join(segs, "/")+".py",
		)
	}, reflect.TypeOf(""))
}

func TestNormalizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(raw string) bool {
			first, err := Normalize(raw)
			if err != nil {
				return true // invalid spellings are rejected, not normalized
			}
			second, err := Normalize(first.String())
			if err != nil {
				return false
			}
			return second == first
		},
		genRawSpelling(),
	))

	properties.Property("idempotent on arbitrary input", prop.ForAll(
		func(raw string) bool {
			first, err := Normalize(raw)
			if err != nil {
				return true
			}
			second, err := Normalize(first.String())
			return err == nil && second == first
		},
		gen.AnyString(),
	))

	properties.Property("path and dotted spellings agree", prop.ForAll(
		func(segs []string) bool {
			asPath, err1 := Normalize(strings.Join(segs, "/") + ".py")
			asDotted, err2 := Normalize(strings.Join(segs, "."))
			asIndex, err3 := Normalize(strings.Join(segs, "/") + "/__init__.py")
			if err1 != nil || err2 != nil || err3 != nil {
				return false
			}
			return asPath == asDotted && asDotted == asIndex
		},
		gen.SliceOfN(4, gen.RegexMatch(`[a-z][a-z0-9_]{0,8}`)),
	))

	properties.Property("result never contains a path separator", prop.ForAll(
		func(raw string) bool {
			id, err := Normalize(raw)
			if err != nil {
				return true
			}
			return !strings.ContainsAny(id.String(), `/\`)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
