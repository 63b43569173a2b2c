// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdata

// Stats is an ordered map from statistic name (such as "wall-time",
// "max-rss" or "instructions:u") to a measured value. Names keep the
// order in which they were first set. The zero Stats is empty and
// ready to use. An empty Stats signals a failed measurement.
type Stats struct {
	names  []string
	values map[string]float64
}

// NewStats returns a Stats holding the given name/value pairs.
func NewStats(pairs ...StatPair) *Stats {
	s := new(Stats)
	for _, p := range pairs {
		s.Set(p.Name, p.Value)
	}
	return s
}

// A StatPair is one named measurement.
type StatPair struct {
	Name  string
	Value float64
}

// Set sets the value of name, appending it if it is new.
func (s *Stats) Set(name string, v float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = v
}

// Get returns the value of name.
func (s *Stats) Get(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of statistics in s.
func (s *Stats) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// IsEmpty reports whether s holds no statistics.
func (s *Stats) IsEmpty() bool {
	return s.Len() == 0
}

// Clear removes every statistic from s.
func (s *Stats) Clear() {
	s.names = s.names[:0]
	clear(s.values)
}

// Names returns the statistic names in insertion order.
func (s *Stats) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Pairs returns the statistics in insertion order.
func (s *Stats) Pairs() []StatPair {
	if s == nil {
		return nil
	}
	pairs := make([]StatPair, len(s.names))
	for i, n := range s.names {
		pairs[i] = StatPair{n, s.values[n]}
	}
	return pairs
}

// Combine adds every value in o to the matching value in s.
// Statistics that are only in o are appended to s.
func (s *Stats) Combine(o *Stats) {
	for _, p := range o.Pairs() {
		v, _ := s.Get(p.Name)
		s.Set(p.Name, v+p.Value)
	}
}

// Clone returns a deep copy of s.
func (s *Stats) Clone() *Stats {
	c := new(Stats)
	c.Combine(s)
	return c
}

// Equal reports whether s and o hold the same statistics in the same
// order. A nil Stats equals an empty one.
func (s *Stats) Equal(o *Stats) bool {
	if s.Len() != o.Len() {
		return false
	}
	for i, n := range s.Names() {
		if o.names[i] != n || o.values[n] != s.values[n] {
			return false
		}
	}
	return true
}
