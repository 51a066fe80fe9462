package community

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Assignment is one entry of a flat labelling as returned by a detector.
// Node is usually a file path; detectors may also emit auxiliary entries
// with non-string nodes, which FromLabelling skips.
type Assignment struct {
	Node  any
	Label any
}

// Labelling is a file -> community label mapping in emission order.
type Labelling []Assignment

// FromLabelling groups string nodes by their label. Community ids follow
// the first appearance of each label.
func FromLabelling(l Labelling) (*Partition, error) {
	p := New()
	for _, a := range l {
		file, ok := a.Node.(string)
		if !ok {
			continue
		}
		id, err := LabelID(a.Label)
		if err != nil {
			return nil, fmt.Errorf("label of %q: %w", file, err)
		}
		if err := p.Add(id, file); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// FromNodeSets assigns each set the id of its position.
func FromNodeSets(sets [][]string) (*Partition, error) {
	p := New()
	for i, set := range sets {
		id := strconv.Itoa(i)
		p.Ensure(id)
		for _, f := range set {
			if err := p.Add(id, f); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// LabelID renders a string or integral label as a community id.
func LabelID(label any) (string, error) {
	switch v := label.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return "", fmt.Errorf("%w: %v is not an integer", ErrInvalidLabel, v)
		}
		return strconv.FormatInt(int64(v), 10), nil
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return "", fmt.Errorf("%w: %s is not an integer", ErrInvalidLabel, v)
		}
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidLabel, label)
	}
}
