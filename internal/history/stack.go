package history

import "sync"

// Stack behaves like a browser session history: pushing while somewhere in
// the middle discards the forward entries.
type Stack struct {
	mu      sync.Mutex
	entries []Entry
	index   int
}

func NewStack() *Stack {
	return &Stack{index: -1}
}

func (s *Stack) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries[:s.index+1], e)
	s.index = len(s.entries) - 1
}

func (s *Stack) Back() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index <= 0 {
		return Entry{}, false
	}
	s.index--
	return s.entries[s.index], true
}

func (s *Stack) Forward() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index+1 >= len(s.entries) {
		return Entry{}, false
	}
	s.index++
	return s.entries[s.index], true
}

func (s *Stack) Current() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 {
		return Entry{}, false
	}
	return s.entries[s.index], true
}

// Len counts every entry, including ones ahead of the current position.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Stack) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}
