package mailstore

// maxSearchHistory bounds the recent-query list.
const maxSearchHistory = 5

// SetSearchText records the active search query.
func (s *Store) SetSearchText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchText = text
}

// SearchText returns the active search query.
func (s *Store) SearchText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchText
}

// ClearSearch resets the active search query.
func (s *Store) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchText = ""
}

// AddSearchHistory records a submitted query, most-recent-first. Re-adding an
// existing entry moves it to the front instead of duplicating it; the list
// keeps at most five entries.
func (s *Store) AddSearchHistory(text string) {
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]string, 0, maxSearchHistory)
	history = append(history, text)
	for _, entry := range s.searchHistory {
		if entry != text {
			history = append(history, entry)
		}
	}
	if len(history) > maxSearchHistory {
		history = history[:maxSearchHistory]
	}
	s.searchHistory = history
}

// SearchHistory returns a copy of the recent-query list, most-recent-first.
func (s *Store) SearchHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]string, len(s.searchHistory))
	copy(history, s.searchHistory)
	return history
}
