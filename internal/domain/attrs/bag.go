package attrs

import "github.com/goccy/go-json"

// Bag is the open mapping of attribute names to values attached to a movie.
type Bag map[string]Value

// Clone returns a shallow copy of b. Values are immutable so sharing them is safe.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Merge returns a copy of b with every key of patch written over it.
func (b Bag) Merge(patch Bag) Bag {
	out := b.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Text returns the string attribute at key, or "" when absent or not a string.
func (b Bag) Text(key string) string {
	s, _ := b[key].Str()
	return s
}

// ParseBag decodes a JSON object into a Bag.
func ParseBag(data []byte) (Bag, error) {
	var b Bag
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotObject
	}
	return b, nil
}
