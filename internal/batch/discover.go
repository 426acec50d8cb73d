package batch

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultPattern matches the names produced by the resize step. It is
// anchored at both ends, so backups such as formula_images_3.png.bak are not
// picked up.
const DefaultPattern = `^formula_images_\d+\.png$`

// Ordering decides the order in which files are processed and reported.
type Ordering string

const (
	// OrderLexical sorts names as strings, so formula_images_10 precedes
	// formula_images_2.
	OrderLexical Ordering = "lexical"

	// OrderNumeric sorts by the last integer in the name, ties broken
	// lexically.
	OrderNumeric Ordering = "numeric"
)

// ParseOrdering accepts "lexical", "numeric" or "" (lexical).
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderLexical:
		return OrderLexical, nil
	case OrderNumeric:
		return OrderNumeric, nil
	}
	return "", fmt.Errorf("unknown ordering %q (want lexical or numeric)", s)
}

var lastNumber = regexp.MustCompile(`(\d+)\D*$`)

// Index returns the last integer in name, or -1 when it has none.
func Index(name string) int {
	m := lastNumber.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// Sort orders names in place.
func (o Ordering) Sort(names []string) {
	if o != OrderNumeric {
		sort.Strings(names)
		return
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := Index(names[i]), Index(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
}

// Discover lists the regular files directly under root whose name matches
// pattern, in the given order. Subdirectories are not descended.
func Discover(root string, pattern *regexp.Regexp, order Ordering) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if pattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	order.Sort(names)
	return names, nil
}
