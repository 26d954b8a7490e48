// Package dedup suppresses spots relayed more than once across the cluster
// network by remembering recently seen spot IDs.
package dedup

import "sync"

// Set is a thread-safe LRU set of recently seen keys. A nil *Set, or one
// built with a non-positive size, reports every key as unseen.
type Set struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently seen
	tail       *entry // least recently seen
}

type entry struct {
	key  string
	prev *entry
	next *entry
}

// New creates a set remembering up to maxEntries keys. It returns nil when
// maxEntries is not positive, which disables suppression.
func New(maxEntries int) *Set {
	if maxEntries <= 0 {
		return nil
	}
	return &Set{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// Seen records key and reports whether it was already present. A repeat
// refreshes the key so a steadily relayed spot stays suppressed.
func (s *Set) Seen(key string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.moveToFront(e)
		return true
	}

	e := &entry{key: key}
	s.entries[key] = e
	s.addToFront(e)

	if len(s.entries) > s.maxEntries {
		s.evictTail()
	}
	return false
}

// Len returns the number of keys currently remembered.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Set) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *Set) addToFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Set) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
}

func (s *Set) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
