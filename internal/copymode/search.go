package copymode

import "strings"

// Match is one search hit: an absolute line and the half-open column
// range [StartCol, EndCol) it spans.
type Match struct {
	Line     int
	StartCol int
	EndCol   int
}

// SearchState is copy-mode's `/`/`?` search sub-mode state.
type SearchState struct {
	InInput  bool
	Forward  bool
	Query    string
	Matches  []Match
	Current  int
}

// BeginSearch enters the query-input sub-mode (`/` forward, `?` backward).
func (e *Engine) BeginSearch(forward bool) {
	e.Search = SearchState{InInput: true, Forward: forward}
}

// AppendQueryRune appends a character to the in-progress query.
func (e *Engine) AppendQueryRune(r rune) {
	if e.Search.InInput {
		e.Search.Query += string(r)
	}
}

// BackspaceQuery removes the last character of the in-progress query.
func (e *Engine) BackspaceQuery() {
	if e.Search.InInput && e.Search.Query != "" {
		r := []rune(e.Search.Query)
		e.Search.Query = string(r[:len(r)-1])
	}
}

// ExecuteSearch runs the accumulated query against every row currently
// in the viewport (case-insensitive), per spec.md §4.7, sorting matches
// bottom-to-top for a backward search, and jumps the cursor to the first
// match if any.
func (e *Engine) ExecuteSearch() {
	e.Search.InInput = false
	if e.Search.Query == "" {
		e.Search.Matches = nil
		return
	}
	query := strings.ToLower(e.Search.Query)
	_, rows := e.Screen.Size()

	var matches []Match
	for line := e.ScrollbackTop; line < e.ScrollbackTop+rows && line < e.totalLines(); line++ {
		text := strings.ToLower(rowText(e.rowAt(line)))
		start := 0
		for {
			idx := strings.Index(text[start:], query)
			if idx < 0 {
				break
			}
			col := start + idx
			matches = append(matches, Match{Line: line, StartCol: col, EndCol: col + len([]rune(query))})
			start = col + 1
			if start >= len(text) {
				break
			}
		}
	}
	if e.Search.Forward {
		sortMatchesAscending(matches)
	} else {
		sortMatchesDescending(matches)
	}
	e.Search.Matches = matches
	e.Search.Current = 0
	if len(matches) > 0 {
		e.jumpToMatch(0)
	}
}

// SearchAgain / SearchReverse step forward/back through the match list
// (n/N), wrapping modulo its length.
func (e *Engine) SearchAgain()   { e.stepMatch(1) }
func (e *Engine) SearchReverse() { e.stepMatch(-1) }

func (e *Engine) stepMatch(delta int) {
	n := len(e.Search.Matches)
	if n == 0 {
		return
	}
	e.Search.Current = ((e.Search.Current+delta)%n + n) % n
	e.jumpToMatch(e.Search.Current)
}

func (e *Engine) jumpToMatch(i int) {
	m := e.Search.Matches[i]
	e.Cursor = Position{Line: m.Line, Col: m.StartCol}
}

func sortMatchesAscending(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && less(m[j], m[j-1]); j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}

func sortMatchesDescending(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && less(m[j-1], m[j]); j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}

func less(a, b Match) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.StartCol < b.StartCol
}
