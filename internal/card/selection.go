package card

import (
	"encoding/json"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// DocumentSelection is the set of documents chosen for sending.
type DocumentSelection struct {
	ids mapset.Set[string]
}

// NewDocumentSelection returns a selection holding ids.
func NewDocumentSelection(ids ...string) *DocumentSelection {
	return &DocumentSelection{ids: mapset.NewThreadUnsafeSet(ids...)}
}

// Toggle adds id when selected is true and removes it otherwise.
// Selecting twice or deselecting an unknown id changes nothing.
func (s *DocumentSelection) Toggle(id string, selected bool) {
	if s.ids == nil {
		s.ids = mapset.NewThreadUnsafeSet[string]()
	}
	if selected {
		s.ids.Add(id)
		return
	}
	s.ids.Remove(id)
}

// Contains reports whether id is selected.
func (s *DocumentSelection) Contains(id string) bool {
	return s.ids != nil && s.ids.Contains(id)
}

// Len returns the number of selected documents.
func (s *DocumentSelection) Len() int {
	if s.ids == nil {
		return 0
	}
	return s.ids.Cardinality()
}

// IDs returns the selected ids in ascending order.
func (s *DocumentSelection) IDs() []string {
	if s.ids == nil {
		return []string{}
	}
	ids := s.ids.ToSlice()
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the selection as a sorted array.
func (s *DocumentSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an array of ids.
func (s *DocumentSelection) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	s.ids = mapset.NewThreadUnsafeSet(ids...)
	return nil
}
