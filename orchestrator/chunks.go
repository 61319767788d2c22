package orchestrator

// Chunks splits l into n balanced, order-preserving groups. n is raised to 1
// and lowered to len(l); the first len(l)%n groups hold one extra element.
// An empty l yields an empty result. Groups are contiguous rather than dealt
// round-robin: [a b c d e f] in 4 groups is [[a b] [c d] [e] [f]], not
// [[a e] [b f] [c] [d]].
func Chunks[T any](l []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if len(l) < n {
		n = len(l)
	}
	out := make([][]T, n)
	if n == 0 {
		return out
	}
	base, rem := len(l)/n, len(l)%n
	start := 0
	for i := range out {
		size := base
		if i < rem {
			size++
		}
		out[i] = append([]T(nil), l[start:start+size]...)
		start += size
	}
	return out
}
