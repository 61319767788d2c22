package sweep

// ResultMap holds one worker's participants per sweep key.
type ResultMap map[Key][]*Participant

// Merge concatenates the buckets of every map key by key. A key present in
// any input is present in the output; duplicates are kept. Order within a
// bucket follows argument order but callers should not rely on it.
func Merge(maps ...ResultMap) ResultMap {
	out := ResultMap{}
	for _, m := range maps {
		for k, ps := range m {
			out[k] = append(out[k], ps...)
		}
	}
	return out
}

// Count is the number of participants across all buckets.
func (m ResultMap) Count() int {
	n := 0
	for _, ps := range m {
		n += len(ps)
	}
	return n
}
