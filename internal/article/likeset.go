package article

import "encoding/json"

// LikeSet is the set of articles a user has liked. It keeps insertion order
// and never holds the same id twice. The zero value is an empty set.
type LikeSet struct {
	ids   []ID
	index map[ID]struct{}
}

// NewLikeSet builds a set from ids, dropping empty and repeated entries.
func NewLikeSet(ids ...ID) LikeSet {
	var s LikeSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *LikeSet) Add(id ID) bool {
	id = Canonical(string(id))
	if id == "" || s.Contains(id) {
		return false
	}
	if s.index == nil {
		s.index = make(map[ID]struct{})
	}
	s.ids = append(s.ids, id)
	s.index[id] = struct{}{}
	return true
}

func (s *LikeSet) Remove(id ID) bool {
	id = Canonical(string(id))
	if !s.Contains(id) {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// Set adds or removes id so that its membership equals liked.
func (s *LikeSet) Set(id ID, liked bool) {
	if liked {
		s.Add(id)
	} else {
		s.Remove(id)
	}
}

func (s LikeSet) Contains(id ID) bool {
	_, ok := s.index[Canonical(string(id))]
	return ok
}

func (s LikeSet) Len() int { return len(s.ids) }

// IDs returns a copy of the members in insertion order.
func (s LikeSet) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s LikeSet) Clone() LikeSet {
	return NewLikeSet(s.ids...)
}

// Equal reports set equality; order is ignored.
func (s LikeSet) Equal(other LikeSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.ids {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

func (s LikeSet) MarshalJSON() ([]byte, error) {
	ids := s.ids
	if ids == nil {
		ids = []ID{}
	}
	return json.Marshal(ids)
}

func (s *LikeSet) UnmarshalJSON(data []byte) error {
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLikeSet(ids...)
	return nil
}
