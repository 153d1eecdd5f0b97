package core

import "fmt"

// IdentifierTable hands out small dense ids to names. Released ids are
// recycled by the next acquisition.
type IdentifierTable struct {
	owners []string
	used   []bool
	lookup map[string]uint32
}

func NewIdentifierTable() *IdentifierTable {
	return &IdentifierTable{
		lookup: make(map[string]uint32),
	}
}

// Acquire returns the id owned by name, taking a new one if name has none.
func (t *IdentifierTable) Acquire(name string) uint32 {
	if id, ok := t.lookup[name]; ok {
		return id
	}
	length := uint32(len(t.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if !t.used[i] {
			t.owners[i] = name
			t.used[i] = true
			t.lookup[name] = i
			return i
		}
	}

	// If here, no existing free slots. The new id will be length.
	t.owners = append(t.owners, name)
	t.used = append(t.used, true)
	t.lookup[name] = length
	return length
}

// Lookup returns the id owned by name without acquiring one.
func (t *IdentifierTable) Lookup(name string) (uint32, bool) {
	id, ok := t.lookup[name]
	return id, ok
}

// Name returns the owner of id.
func (t *IdentifierTable) Name(id uint32) (string, bool) {
	if id >= uint32(len(t.owners)) || !t.used[id] {
		return "", false
	}
	return t.owners[id], true
}

func (t *IdentifierTable) Release(id uint32) error {
	length := uint32(len(t.owners))
	if id >= length {
		return fmt.Errorf("identifier release: id '%d' out of range (max=%d). Nothing was done", id, length)
	}
	if !t.used[id] {
		return fmt.Errorf("identifier release: id '%d' is not in use. Nothing was done", id)
	}

	// Just zero out the entry, making it available for use.
	delete(t.lookup, t.owners[id])
	t.owners[id] = ""
	t.used[id] = false
	return nil
}

// Len is the number of ids currently in use.
func (t *IdentifierTable) Len() int {
	return len(t.lookup)
}
