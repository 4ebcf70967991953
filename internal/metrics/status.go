package metrics

import (
	"sort"
	"strconv"
)

// StatusClasses counts responses per status class: index 0 is 1xx, index 4
// is 5xx.
type StatusClasses [5]int64

// ClassOf returns the class index of code, -1 outside 100..599.
func ClassOf(code int) int {
	if code < 100 || code > 599 {
		return -1
	}
	return code/100 - 1
}

// Add counts one response with the given status code.
func (s *StatusClasses) Add(code int) {
	if idx := ClassOf(code); idx >= 0 {
		s[idx]++
	}
}

// Plus returns the element-wise sum of s and o.
func (s StatusClasses) Plus(o StatusClasses) StatusClasses {
	for i := range s {
		s[i] += o[i]
	}
	return s
}

// Total is the number of counted responses.
func (s StatusClasses) Total() int64 {
	var n int64
	for _, v := range s {
		n += v
	}
	return n
}

// StatusBucket is one row of a status class breakdown.
type StatusBucket struct {
	Class string
	Count int64
}

// Buckets returns the non-empty classes sorted by descending count, then by
// class for stability.
func (s StatusClasses) Buckets() []StatusBucket {
	var rows []StatusBucket
	for i, n := range s {
		if n == 0 {
			continue
		}
		rows = append(rows, StatusBucket{Class: strconv.Itoa(i+1) + "xx", Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
