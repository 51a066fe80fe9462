package community

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrMalformed is returned when partition input matches none of the
// supported shapes.
var ErrMalformed = errors.New("malformed partition")

// Shape names a raw partition layout.
type Shape string

const (
	ShapeAuto        Shape = "auto"
	ShapeCommunities Shape = "communities" // {"id": ["file", ...]}
	ShapeLabelling   Shape = "labelling"   // {"file": id}
	ShapeNodeSets    Shape = "sets"        // [["file", ...], ...]
)

// ParseShape validates a shape name.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case "", ShapeAuto:
		return ShapeAuto, nil
	case ShapeCommunities, ShapeLabelling, ShapeNodeSets:
		return Shape(s), nil
	default:
		return "", fmt.Errorf("unknown partition shape %q", s)
	}
}

// Decode reads a partition in the given shape. ShapeAuto picks node sets
// for arrays, communities for objects whose values are all arrays, and
// labelling for any other object.
func Decode(r io.Reader, shape Shape) (*Partition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read partition: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	if shape == ShapeAuto || shape == "" {
		shape, err = detectShape(data)
		if err != nil {
			return nil, err
		}
	}

	switch shape {
	case ShapeNodeSets:
		var sets [][]string
		if err := json.Unmarshal(data, &sets); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return FromNodeSets(sets)
	case ShapeCommunities:
		entries, err := decodeObject(data)
		if err != nil {
			return nil, err
		}
		p := New()
		for _, e := range entries {
			var files []string
			if err := json.Unmarshal(e.value, &files); err != nil {
				return nil, fmt.Errorf("%w: community %q: %v", ErrMalformed, e.key, err)
			}
			if p.Has(e.key) {
				return nil, fmt.Errorf("%w: duplicate community %q", ErrMalformed, e.key)
			}
			p.Ensure(e.key)
			for _, f := range files {
				if err := p.Add(e.key, f); err != nil {
					return nil, err
				}
			}
		}
		return p, nil
	case ShapeLabelling:
		entries, err := decodeObject(data)
		if err != nil {
			return nil, err
		}
		l := make(Labelling, 0, len(entries))
		for _, e := range entries {
			dec := json.NewDecoder(bytes.NewReader(e.value))
			dec.UseNumber()
			var label any
			if err := dec.Decode(&label); err != nil {
				return nil, fmt.Errorf("%w: label of %q: %v", ErrMalformed, e.key, err)
			}
			l = append(l, Assignment{Node: e.key, Label: label})
		}
		return FromLabelling(l)
	default:
		return nil, fmt.Errorf("unknown partition shape %q", shape)
	}
}

// Load reads a partition file.
func Load(path string, shape Shape) (*Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open partition: %w", err)
	}
	defer f.Close()
	p, err := Decode(f, shape)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

type rawEntry struct {
	key   string
	value json.RawMessage
}

func detectShape(data []byte) (Shape, error) {
	switch data[0] {
	case '[':
		return ShapeNodeSets, nil
	case '{':
		entries, err := decodeObject(data)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			v := bytes.TrimSpace(e.value)
			if len(v) == 0 || v[0] != '[' {
				return ShapeLabelling, nil
			}
		}
		return ShapeCommunities, nil
	default:
		return "", fmt.Errorf("%w: expected object or array", ErrMalformed)
	}
}

// decodeObject splits a JSON object into its entries in document order.
func decodeObject(data []byte) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}
	var entries []rawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}
		entries = append(entries, rawEntry{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	return entries, nil
}
