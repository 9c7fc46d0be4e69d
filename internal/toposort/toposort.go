// Package toposort implements the stable, dependency-respecting ordering
// used to sequence branch commits so that every additional-parent a commit
// references has already been produced (§4.H).
package toposort

import "fmt"

// Error reports a sort that could not complete: keys referenced by a
// dependency edge but absent from the input set are "external"; keys that
// only resolve through a cycle are "cyclical".
type Error struct {
	Cyclical            []string
	ExternalDependencies []string
	ExternalDependents   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("toposort: %d cyclical, %d external dependencies, %d external dependents",
		len(e.Cyclical), len(e.ExternalDependencies), len(e.ExternalDependents))
}

// Sort orders items so that every item appears after all keys its DepsOf
// function names as dependencies. Among items whose dependencies are
// already satisfied, items are emitted in input order (stability).
//
// keyOf extracts the comparable key for an item; depsOf returns the keys of
// items it depends on (dependencies not present in the input set are
// reported via Error.ExternalDependencies/ExternalDependents rather than
// silently ignored).
func Sort[T any, K comparable](items []T, keyOf func(T) K, depsOf func(T) []K) ([]T, error) {
	keyToIndex := make(map[K]int, len(items))
	for i, it := range items {
		keyToIndex[keyOf(it)] = i
	}

	deps := make([][]K, len(items))
	indegree := make([]int, len(items))
	dependents := make([][]int, len(items))

	var externalDepSet = make(map[K]struct{})
	for i, it := range items {
		ds := depsOf(it)
		deps[i] = ds
		for _, d := range ds {
			j, ok := keyToIndex[d]
			if !ok {
				externalDepSet[d] = struct{}{}
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	if len(externalDepSet) > 0 {
		var externalDeps []K
		for d := range externalDepSet {
			externalDeps = append(externalDeps, d)
		}
		var externalDependents []K
		for i, ds := range deps {
			for _, d := range ds {
				if _, ok := externalDepSet[d]; ok {
					externalDependents = append(externalDependents, keyOf(items[i]))
					break
				}
			}
		}
		return nil, &Error{
			ExternalDependencies: keysToStrings(externalDeps),
			ExternalDependents:   keysToStrings(externalDependents),
		}
	}

	ready := make([]bool, len(items))
	for i := range items {
		ready[i] = indegree[i] == 0
	}

	var order []int
	remaining := len(items)
	for remaining > 0 {
		progressed := false
		for i := 0; i < len(items); i++ {
			if !ready[i] {
				continue
			}
			ready[i] = false
			order = append(order, i)
			remaining--
			progressed = true
			for _, dep := range dependents[i] {
				indegree[dep]--
				if indegree[dep] == 0 {
					ready[dep] = true
				}
			}
		}
		if !progressed {
			break
		}
	}

	if remaining > 0 {
		var cyclical []K
		seen := make(map[int]bool)
		for i := range items {
			if indegree[i] > 0 && !seen[i] {
				seen[i] = true
				cyclical = append(cyclical, keyOf(items[i]))
			}
		}
		return nil, &Error{Cyclical: keysToStrings(cyclical)}
	}

	out := make([]T, 0, len(items))
	for _, i := range order {
		out = append(out, items[i])
	}
	return out, nil
}

func keysToStrings[K comparable](ks []K) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = fmt.Sprintf("%v", k)
	}
	return out
}
