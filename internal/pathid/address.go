package pathid

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is the structured representation of a path's lineage. Each segment
// is the fork index assigned by the parent path; the first segment is always
// 0 (the root path of a run).
type Address struct {
	segs []int
}

// Root returns the address of a run's initial path.
func Root() Address {
	return Address{segs: []int{0}}
}

// Child returns the address of this path's n-th forked child.
func (a Address) Child(n int) Address {
	segs := make([]int, len(a.segs), len(a.segs)+1)
	copy(segs, a.segs)
	return Address{segs: append(segs, n)}
}

// Parent returns the address of the path that forked this one. The second
// return value is false for the root address.
func (a Address) Parent() (Address, bool) {
	if len(a.segs) <= 1 {
		return Address{}, false
	}
	segs := make([]int, len(a.segs)-1)
	copy(segs, a.segs[:len(a.segs)-1])
	return Address{segs: segs}, true
}

// Generation returns how many forks separate this path from the root.
func (a Address) Generation() int {
	if len(a.segs) == 0 {
		return 0
	}
	return len(a.segs) - 1
}

// String returns the canonical dotted form, e.g. "0.1.2".
func (a Address) String() string {
	parts := make([]string, len(a.segs))
	for i, s := range a.segs {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ".")
}

// Parse creates an Address from its canonical string representation.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("path address cannot be empty")
	}

	parts := strings.Split(raw, ".")
	segs := make([]int, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return Address{}, fmt.Errorf("path address contains empty segment: %q", raw)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Address{}, fmt.Errorf("invalid path address segment %q in %q", part, raw)
		}
		segs = append(segs, n)
	}
	if segs[0] != 0 {
		return Address{}, fmt.Errorf("path address must be rooted at 0, got %q", raw)
	}
	return Address{segs: segs}, nil
}
