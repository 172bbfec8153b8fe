package nrepl

import "slices"

// sessionList holds the sessions cloned on one connection, in ascending
// order.
type sessionList struct {
	ids []int64
}

// clone allocates one more than the newest live session, or 1.
func (s *sessionList) clone() int64 {
	next := int64(1)
	if n := len(s.ids); n > 0 {
		next = s.ids[n-1] + 1
	}
	s.ids = append(s.ids, next)
	return next
}

func (s *sessionList) contains(id int64) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

func (s *sessionList) close(id int64) bool {
	i, found := slices.BinarySearch(s.ids, id)
	if found {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
	return found
}

func (s *sessionList) list() []int64 {
	return append([]int64{}, s.ids...)
}
