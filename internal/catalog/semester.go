package catalog

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var firstInt = regexp.MustCompile(`\d+`)

// NormalizeSemester maps "1st", "sem-1", "Sem 1" and "SEM1" onto "SEM1".
// Input without any digits is returned trimmed and uppercased; it never fails,
// an unknown key simply finds nothing downstream.
func NormalizeSemester(s string) string {
	if n := firstInt.FindString(s); n != "" {
		v, err := strconv.Atoi(n)
		if err == nil {
			return "SEM" + strconv.Itoa(v)
		}
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// SemesterNumber returns the number of a normalized semester, or 0.
func SemesterNumber(s string) int {
	n := firstInt.FindString(s)
	if n == "" {
		return 0
	}
	v, _ := strconv.Atoi(n)
	return v
}

// SortSemesters orders semesters numerically, unknown keys last.
func SortSemesters(sems []string) {
	sort.SliceStable(sems, func(i, j int) bool {
		a, b := SemesterNumber(sems[i]), SemesterNumber(sems[j])
		switch {
		case a == 0 && b == 0:
			return sems[i] < sems[j]
		case a == 0:
			return false
		case b == 0:
			return true
		default:
			return a < b
		}
	})
}
