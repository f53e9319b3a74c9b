package fixture

import (
	"fmt"
	"net/url"
	"sort"
)

type DataKind int

const (
	KindNone DataKind = iota
	KindOpaque
	KindPairs
)

func (k DataKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOpaque:
		return "opaque"
	case KindPairs:
		return "pairs"
	}
	return fmt.Sprintf("DataKind(%d)", int(k))
}

// Data is the payload of a request: nothing, an opaque string compared
// literally, or form-style key/value pairs compared by overlap.
//
// The zero value is NoData.
type Data struct {
	kind   DataKind
	opaque string
	pairs  url.Values
}

func NoData() Data {
	return Data{}
}

// Opaque returns string data, an empty string normalizes to NoData.
func Opaque(s string) Data {
	if s == "" {
		return Data{}
	}
	return Data{kind: KindOpaque, opaque: s}
}

// Pairs returns form data built from a single-valued mapping, an empty
// mapping normalizes to NoData.
func Pairs(m map[string]string) Data {
	if len(m) == 0 {
		return Data{}
	}
	values := make(url.Values, len(m))
	for k, v := range m {
		values.Set(k, v)
	}
	return Data{kind: KindPairs, pairs: values}
}

// Values returns form data built from url.Values, every value of a
// multi-valued key contributes its own pair.
func Values(v url.Values) Data {
	values := make(url.Values, len(v))
	for k, vals := range v {
		if len(vals) == 0 {
			continue
		}
		values[k] = append([]string(nil), vals...)
	}
	if len(values) == 0 {
		return Data{}
	}
	return Data{kind: KindPairs, pairs: values}
}

func (d Data) Kind() DataKind {
	return d.kind
}

func (d Data) IsEmpty() bool {
	return d.kind == KindNone
}

// String returns the opaque payload, or "" for any other kind.
func (d Data) String() string {
	return d.opaque
}

// Form returns a copy of the pairs, or nil for any other kind.
func (d Data) Form() url.Values {
	if d.kind != KindPairs {
		return nil
	}
	out := make(url.Values, len(d.pairs))
	for k, vals := range d.pairs {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Encode renders the data as a request body: opaque data verbatim, pairs
// urlencoded with sorted keys.
func (d Data) Encode() string {
	switch d.kind {
	case KindOpaque:
		return d.opaque
	case KindPairs:
		return d.pairs.Encode()
	}
	return ""
}

// PairSet returns the "key=value" strings of the data. Only pairs data has
// a non-empty pair set.
func (d Data) PairSet() map[string]struct{} {
	set := map[string]struct{}{}
	if d.kind != KindPairs {
		return set
	}
	for k, vals := range d.pairs {
		for _, v := range vals {
			set[k+"="+v] = struct{}{}
		}
	}
	return set
}

func (d Data) Equal(other Data) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case KindOpaque:
		return d.opaque == other.opaque
	case KindPairs:
		return setEqual(d.PairSet(), other.PairSet())
	}
	return true
}

// GoString is used in lookup error messages.
func (d Data) GoString() string {
	switch d.kind {
	case KindOpaque:
		return fmt.Sprintf("%q", d.opaque)
	case KindPairs:
		pairs := make([]string, 0, len(d.pairs))
		for p := range d.PairSet() {
			pairs = append(pairs, p)
		}
		sort.Strings(pairs)
		return fmt.Sprintf("%v", pairs)
	}
	return "<none>"
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// difference returns |a - b|.
func difference(a, b map[string]struct{}) int {
	n := 0
	for k := range a {
		if _, ok := b[k]; !ok {
			n++
		}
	}
	return n
}
