// Package encoding maps categorical strings to the integer codes the tree model was trained on.
package encoding

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wonny/salescast/internal/contracts"
)

// Encoder is a bijection between a column's classes and 0..n-1.
// Classes are sorted, so codes do not depend on the order values were seen.
type Encoder struct {
	classes []string
	index   map[string]int
}

func newEncoder(values []string) *Encoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &Encoder{classes: classes, index: index}
}

// Classes returns the sorted class list (code = position)
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Bank holds one Encoder per categorical column
type Bank struct {
	encoders map[string]*Encoder
}

// Fit builds a Bank from the observed values of each column
func Fit(values map[string][]string) *Bank {
	b := &Bank{encoders: make(map[string]*Encoder, len(values))}
	for col, vs := range values {
		b.encoders[col] = newEncoder(vs)
	}
	return b
}

// Columns returns the encoded column names in sorted order
func (b *Bank) Columns() []string {
	cols := make([]string, 0, len(b.encoders))
	for c := range b.encoders {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Has reports whether column is encoded
func (b *Bank) Has(column string) bool {
	_, ok := b.encoders[column]
	return ok
}

// Encode returns the code of value in column
func (b *Bank) Encode(column, value string) (int, error) {
	enc, ok := b.encoders[column]
	if !ok {
		return 0, fmt.Errorf("no encoder for column %s", column)
	}
	code, ok := enc.index[value]
	if !ok {
		return 0, &contracts.UnknownCategoryError{Column: column, Value: value}
	}
	return code, nil
}

// Decode returns the class behind a code
func (b *Bank) Decode(column string, code int) (string, error) {
	enc, ok := b.encoders[column]
	if !ok {
		return "", fmt.Errorf("no encoder for column %s", column)
	}
	if code < 0 || code >= len(enc.classes) {
		return "", fmt.Errorf("code %d out of range for column %s (%d classes)", code, column, len(enc.classes))
	}
	return enc.classes[code], nil
}

// MarshalJSON writes {"column": ["class0", "class1", ...]}
func (b *Bank) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(b.encoders))
	for col, enc := range b.encoders {
		out[col] = enc.classes
	}
	return json.Marshal(out)
}

// Parse reads a Bank from its JSON form.
// Class lists must already be sorted and unique, otherwise codes would shift.
func Parse(data []byte) (*Bank, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}

	b := &Bank{encoders: make(map[string]*Encoder, len(raw))}
	for col, classes := range raw {
		for i := 1; i < len(classes); i++ {
			if classes[i-1] >= classes[i] {
				return nil, fmt.Errorf("encoder %s: classes not sorted and unique at %d (%q, %q)", col, i, classes[i-1], classes[i])
			}
		}
		enc := newEncoder(classes)
		b.encoders[col] = enc
	}
	return b, nil
}
