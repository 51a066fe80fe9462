package community

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGroupByTopDirectory(t *testing.T) {
	p := GroupByTopDirectory([]string{
		"src/app/main.js",
		"lib/util.js",
		"index.js",
		"src/other.js",
		"README",
	})

	assert.Equal(t, []string{"src", "lib", ""}, p.IDs())
	assert.Equal(t, []string{"src/app/main.js", "src/other.js"}, p.Members("src"))
	assert.Equal(t, []string{"lib/util.js"}, p.Members("lib"))
	assert.Equal(t, []string{"index.js", "README"}, p.Members(""))
}

func TestGroupByTopDirectory_Scenario(t *testing.T) {
	p := GroupByTopDirectory([]string{"a/x", "b/y"})
	assert.Equal(t, map[string][]string{"a": {"a/x"}, "b": {"b/y"}}, p.Map())
}

func TestGroupByTopDirectory_DuplicateInput(t *testing.T) {
	p := GroupByTopDirectory([]string{"a/x", "a/x"})
	assert.Equal(t, 1, p.FileCount())
}

func TestTopDirectory(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"a/b/c.js", "a"},
		{"a/c.js", "a"},
		{"c.js", ""},
		{"/abs/c.js", ""},
		{"./rel/c.js", "."},
	}
	for _, tt := range tests {
		if got := topDirectory(tt.file); got != tt.want {
			t.Errorf("topDirectory(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestPartition_AddRejectsSecondCommunity(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("a", "f"))
	require.NoError(t, p.Add("a", "f"))

	err := p.Add("b", "f")
	assert.True(t, errors.Is(err, ErrDuplicateFile))
	assert.False(t, p.Has("b"), "failed add must not create the community")
}

func TestPartition_RemoveFile(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("a", "f1"))
	require.NoError(t, p.Add("a", "f2"))

	assert.Equal(t, 1, p.RemoveFile("f1"))
	assert.Equal(t, 0, p.RemoveFile("f1"))
	_, ok := p.CommunityOf("f1")
	assert.False(t, ok)
	assert.Equal(t, []string{"f2"}, p.Members("a"))
	assert.True(t, p.Has("a"), "emptied communities stay in place")
}

func TestPartition_Replace(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("a", "f1"))
	require.NoError(t, p.Add("s", "old"))

	require.NoError(t, p.Replace("s", []string{"f2", "f3"}))
	assert.Equal(t, []string{"f2", "f3"}, p.Members("s"))
	_, ok := p.CommunityOf("old")
	assert.False(t, ok, "overwritten members lose their owner")

	err := p.Replace("s", []string{"f1"})
	assert.True(t, errors.Is(err, ErrDuplicateFile))
	assert.Equal(t, []string{"f2", "f3"}, p.Members("s"), "failed replace must not mutate")
}

func TestPartition_CloneIsIndependent(t *testing.T) {
	p := GroupByTopDirectory([]string{"a/x", "b/y"})
	c := p.Clone()
	c.RemoveFile("a/x")

	assert.Equal(t, []string{"a/x"}, p.Members("a"))
	id, ok := p.CommunityOf("a/x")
	assert.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestPartition_MarshalJSON(t *testing.T) {
	p := New()
	p.Ensure("z")
	require.NoError(t, p.Add("a", "a/x"))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"z":[],"a":["a/x"]}`, string(data))
}

func TestPartition_MarshalYAML(t *testing.T) {
	p := New()
	require.NoError(t, p.Add("b", "true"))
	require.NoError(t, p.Add("a", "a/x"))

	data, err := yaml.Marshal(p)
	require.NoError(t, err)
	out := string(data)
	assert.Less(t, strings.Index(out, "b:"), strings.Index(out, "a:"), "community order should be kept")
	assert.Contains(t, out, `"true"`, "string scalars that look like bools must be quoted")
}

// Adapter Tests

func TestFromLabelling_SkipsNonStringNodes(t *testing.T) {
	p, err := FromLabelling(Labelling{
		{Node: "f1", Label: 0},
		{Node: 7, Label: 0},
		{Node: "f2", Label: 1},
		{Node: "f3", Label: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, p.IDs())
	assert.Equal(t, []string{"f1", "f3"}, p.Members("0"))
	assert.Equal(t, 3, p.FileCount())
}

func TestFromLabelling_RejectsBadLabels(t *testing.T) {
	for _, label := range []any{nil, true, 1.5, []int{1}} {
		_, err := FromLabelling(Labelling{{Node: "f", Label: label}})
		if !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("label %v: expected ErrInvalidLabel, got %v", label, err)
		}
	}
}

func TestFromNodeSets(t *testing.T) {
	p, err := FromNodeSets([][]string{{"f1", "f2"}, {}, {"f3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, p.IDs())
	assert.Equal(t, 0, p.Size("1"))

	_, err = FromNodeSets([][]string{{"f1"}, {"f1"}})
	assert.True(t, errors.Is(err, ErrDuplicateFile))
}

func TestAdapterEquivalence(t *testing.T) {
	fromLabels, err := FromLabelling(Labelling{
		{Node: "f1", Label: 0}, {Node: "f2", Label: 0}, {Node: "f3", Label: 1},
	})
	require.NoError(t, err)
	fromSets, err := FromNodeSets([][]string{{"f1", "f2"}, {"f3"}})
	require.NoError(t, err)

	assert.Equal(t, membership(fromLabels), membership(fromSets))
}

func membership(p *Partition) []string {
	var groups []string
	for _, id := range p.IDs() {
		m := p.Members(id)
		sort.Strings(m)
		groups = append(groups, strings.Join(m, ","))
	}
	sort.Strings(groups)
	return groups
}

func TestLabelID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"core", "core"},
		{3, "3"},
		{int64(-2), "-2"},
		{float64(4), "4"},
		{json.Number("12"), "12"},
	}
	for _, tt := range tests {
		got, err := LabelID(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("LabelID(%v) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

// Decode Tests

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		shape Shape
		want  map[string][]string
	}{
		{"communities", `{"a": ["a/x"], "b": ["b/y"]}`, ShapeAuto, map[string][]string{"a": {"a/x"}, "b": {"b/y"}}},
		{"labelling", `{"f1": 0, "f2": 0, "f3": "x"}`, ShapeAuto, map[string][]string{"0": {"f1", "f2"}, "x": {"f3"}}},
		{"sets", `[["f1", "f2"], ["f3"]]`, ShapeAuto, map[string][]string{"0": {"f1", "f2"}, "1": {"f3"}}},
		{"explicit sets", `[["f1"]]`, ShapeNodeSets, map[string][]string{"0": {"f1"}}},
		{"empty object", `{}`, ShapeAuto, map[string][]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(strings.NewReader(tt.input), tt.shape)
			require.NoError(t, err)
			assert.True(t, reflect.DeepEqual(tt.want, p.Map()), "got %v", p.Map())
		})
	}
}

func TestDecode_KeepsOrder(t *testing.T) {
	p, err := Decode(strings.NewReader(`{"z": ["z/1"], "a": ["a/1"]}`), ShapeAuto)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, p.IDs())
}

func TestDecode_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		shape Shape
		want  error
	}{
		{"scalar", `42`, ShapeAuto, ErrMalformed},
		{"empty", ` `, ShapeAuto, ErrMalformed},
		{"bad sets", `[["a", 1]]`, ShapeAuto, ErrMalformed},
		{"mixed communities", `{"a": ["x"], "b": 3}`, ShapeCommunities, ErrMalformed},
		{"duplicate file", `{"a": ["x"], "b": ["x"]}`, ShapeAuto, ErrDuplicateFile},
		{"fractional label", `{"f": 1.5}`, ShapeAuto, ErrInvalidLabel},
		{"trailing", `{"a": []} []`, ShapeCommunities, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.shape)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
		})
	}
}

func TestParseShape(t *testing.T) {
	s, err := ParseShape("")
	require.NoError(t, err)
	assert.Equal(t, ShapeAuto, s)

	_, err = ParseShape("tree")
	assert.Error(t, err)
}
