package containers

import "slices"

type Stack[E any] struct {
	data []E
}

func (s *Stack[E]) Data() []E {
	return slices.Clone(s.data)
}

// View returns the backing slice, bottom first. It is only valid until the
// next Push or Pop.
func (s *Stack[E]) View() []E {
	return s.data
}

func (s *Stack[E]) Len() int {
	return len(s.data)
}

func (s *Stack[E]) Empty() bool {
	return len(s.data) == 0
}

func (s *Stack[E]) Push(e E) {
	s.data = append(s.data, e)
}

func (s *Stack[E]) Pop() E {
	var zero E
	e := s.data[len(s.data)-1]
	s.data[len(s.data)-1] = zero
	s.data = s.data[:len(s.data)-1]
	return e
}

// Top returns a pointer to the innermost element. The stack must not be empty.
func (s *Stack[E]) Top() *E {
	return &s.data[len(s.data)-1]
}

// At returns a pointer to the i-th element from the bottom.
func (s *Stack[E]) At(i int) *E {
	return &s.data[i]
}

func (s *Stack[E]) Reset() {
	clear(s.data)
	s.data = s.data[:0]
}
