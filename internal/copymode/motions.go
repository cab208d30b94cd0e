package copymode

import (
	"unicode"

	"psmux/internal/vtscreen"
)

// charClass per spec.md §4.7: 0 whitespace, 1 word (alnum + underscore,
// minus anything listed in word-separators), 2 punctuation-or-other.
func charClass(r rune, seps string) int {
	if r == 0 || r == ' ' || r == '\t' {
		return 0
	}
	for _, s := range seps {
		if r == s {
			return 2
		}
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return 1
	}
	return 2
}

// bigWordClass is the whitespace-vs-not classifier W/B/E use.
func bigWordClass(r rune) int {
	if r == 0 || r == ' ' || r == '\t' {
		return 0
	}
	return 1
}

func (e *Engine) runeAt(line, col int) rune {
	row := e.rowAt(line)
	if col < 0 || col >= len(row) {
		return 0
	}
	content := row[col].Content
	if content == "" {
		return 0
	}
	return []rune(content)[0]
}

// MoveLeft/Right/Up/Down are the h/j/k/l (or arrow) single-cell motions.
func (e *Engine) MoveLeft()  { e.repeat(func() { e.Cursor.Col--; e.clampCursor() }) }
func (e *Engine) MoveRight() { e.repeat(func() { e.Cursor.Col++; e.clampCursor() }) }
func (e *Engine) MoveUp()    { e.repeat(func() { e.Cursor.Line--; e.clampCursor() }) }
func (e *Engine) MoveDown()  { e.repeat(func() { e.Cursor.Line++; e.clampCursor() }) }

func (e *Engine) repeat(step func()) {
	n := e.takeCount()
	for i := 0; i < n; i++ {
		step()
	}
}

// StartOfLine, EndOfLine, FirstNonBlank implement 0 / $ / ^.
func (e *Engine) StartOfLine()   { e.Cursor.Col = 0 }
func (e *Engine) EndOfLine()     { e.Cursor.Col = lastNonEmptyCol(e.rowAt(e.Cursor.Line)) }
func (e *Engine) FirstNonBlank() { e.Cursor.Col = firstNonBlankCol(e.rowAt(e.Cursor.Line), e.WordSeparators) }

func lastNonEmptyCol(row []vtscreen.Cell) int {
	for i := len(row) - 1; i >= 0; i-- {
		if row[i].Content != "" && row[i].Content != " " {
			return i
		}
	}
	return 0
}

func firstNonBlankCol(row []vtscreen.Cell, seps string) int {
	for i, c := range row {
		if c.Content != "" && charClass([]rune(c.Content+" ")[0], seps) != 0 {
			return i
		}
	}
	return 0
}

// HistoryTop / HistoryBottom implement g / G.
func (e *Engine) HistoryTop()    { e.Cursor.Line, e.Cursor.Col = 0, 0 }
func (e *Engine) HistoryBottom() { e.Cursor.Line = e.totalLines() - 1 }

// TopLine / MiddleLine / BottomLine implement H/M/L against the current
// viewport (the ScrollbackTop..ScrollbackTop+rows-1 window).
func (e *Engine) TopLine() {
	e.Cursor.Line = e.ScrollbackTop
	e.clampCursor()
}
func (e *Engine) MiddleLine() {
	_, rows := e.Screen.Size()
	e.Cursor.Line = e.ScrollbackTop + rows/2
	e.clampCursor()
}
func (e *Engine) BottomLine() {
	_, rows := e.Screen.Size()
	e.Cursor.Line = e.ScrollbackTop + rows - 1
	e.clampCursor()
}

// ScrollPage moves the viewport by delta lines (negative scrolls up),
// backing Ctrl+U/D (half page) and PageUp/PageDown (full page) and the
// scroll-up/scroll-down sub-verbs.
func (e *Engine) ScrollPage(delta int) {
	e.ScrollbackTop += delta
	if e.ScrollbackTop < 0 {
		e.ScrollbackTop = 0
	}
	if max := e.totalLines() - 1; e.ScrollbackTop > max {
		e.ScrollbackTop = max
	}
	e.Cursor.Line += delta
	e.clampCursor()
}

func (e *Engine) HalfPageUp()   { _, rows := e.Screen.Size(); e.ScrollPage(-halfPage(rows)) }
func (e *Engine) HalfPageDown() { _, rows := e.Screen.Size(); e.ScrollPage(halfPage(rows)) }
func (e *Engine) PageUp()       { _, rows := e.Screen.Size(); e.ScrollPage(-rows) }
func (e *Engine) PageDown()     { _, rows := e.Screen.Size(); e.ScrollPage(rows) }

// NextWord / PreviousWord / NextWordEnd implement w/b/e: skip the
// current character's class, then skip whitespace, wrapping across
// lines, using the three-class word/punctuation/whitespace scheme.
func (e *Engine) NextWord()  { e.repeat(func() { e.nextWord(charClass) }) }
func (e *Engine) PrevWord()  { e.repeat(func() { e.prevWord(charClass) }) }
func (e *Engine) NextWordEnd() { e.repeat(func() { e.nextWordEnd(charClass) }) }

func (e *Engine) NextBigWord()    { e.repeat(func() { e.nextWord(func(r rune, _ string) int { return bigWordClass(r) }) }) }
func (e *Engine) PrevBigWord()    { e.repeat(func() { e.prevWord(func(r rune, _ string) int { return bigWordClass(r) }) }) }
func (e *Engine) NextBigWordEnd() { e.repeat(func() { e.nextWordEnd(func(r rune, _ string) int { return bigWordClass(r) }) }) }

type classifier func(rune, string) int

func (e *Engine) nextWord(classify classifier) {
	start := classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators)
	for {
		if !e.advance() {
			return
		}
		r := e.runeAt(e.Cursor.Line, e.Cursor.Col)
		if classify(r, e.WordSeparators) != start && classify(r, e.WordSeparators) != 0 {
			return
		}
		if classify(r, e.WordSeparators) == 0 {
			start = 0
		}
	}
}

func (e *Engine) prevWord(classify classifier) {
	if !e.retreat() {
		return
	}
	for classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators) == 0 {
		if !e.retreat() {
			return
		}
	}
	cls := classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators)
	for {
		prevLine, prevCol := e.Cursor.Line, e.Cursor.Col
		if !e.retreat() {
			e.Cursor.Line, e.Cursor.Col = prevLine, prevCol
			return
		}
		if classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators) != cls {
			e.Cursor.Line, e.Cursor.Col = prevLine, prevCol
			return
		}
	}
}

func (e *Engine) nextWordEnd(classify classifier) {
	if !e.advance() {
		return
	}
	for classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators) == 0 {
		if !e.advance() {
			return
		}
	}
	cls := classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators)
	for {
		nextLine, nextCol := e.Cursor.Line, e.Cursor.Col
		if !e.advance() {
			return
		}
		if classify(e.runeAt(e.Cursor.Line, e.Cursor.Col), e.WordSeparators) != cls {
			e.Cursor.Line, e.Cursor.Col = nextLine, nextCol
			return
		}
	}
}

// advance/retreat move one cell forward/back, wrapping to the next/prev
// line's start/end; they report false at the addressable range's edges.
func (e *Engine) advance() bool {
	if e.Cursor.Col < e.cols()-1 {
		e.Cursor.Col++
		return true
	}
	if e.Cursor.Line >= e.totalLines()-1 {
		return false
	}
	e.Cursor.Line++
	e.Cursor.Col = 0
	return true
}

func (e *Engine) retreat() bool {
	if e.Cursor.Col > 0 {
		e.Cursor.Col--
		return true
	}
	if e.Cursor.Line <= 0 {
		return false
	}
	e.Cursor.Line--
	e.Cursor.Col = e.cols() - 1
	return true
}

// NextParagraph / PreviousParagraph implement {/}: blank-line boundaries.
func (e *Engine) NextParagraph() {
	e.repeat(func() {
		for e.Cursor.Line < e.totalLines()-1 {
			e.Cursor.Line++
			if isBlankLine(e.rowAt(e.Cursor.Line)) {
				return
			}
		}
	})
}

func (e *Engine) PreviousParagraph() {
	e.repeat(func() {
		for e.Cursor.Line > 0 {
			e.Cursor.Line--
			if isBlankLine(e.rowAt(e.Cursor.Line)) {
				return
			}
		}
	})
}

func isBlankLine(row []vtscreen.Cell) bool {
	for _, c := range row {
		if c.Content != "" && c.Content != " " {
			return false
		}
	}
	return true
}

// FindChar implements f/F/t/T: jump to (or just before, for t/T) the
// next/previous occurrence of ch on the current line.
func (e *Engine) FindChar(verb byte, ch rune) {
	e.lastFind.verb, e.lastFind.ch = verb, ch
	e.repeat(func() { e.findCharOnce(verb, ch) })
}

// RepeatFind / ReverseFind implement `;` and `,` against the last find.
func (e *Engine) RepeatFind() {
	if e.lastFind.verb != 0 {
		e.FindChar(e.lastFind.verb, e.lastFind.ch)
	}
}

func (e *Engine) ReverseFind() {
	reversed := map[byte]byte{'f': 'F', 'F': 'f', 't': 'T', 'T': 't'}
	if v, ok := reversed[e.lastFind.verb]; ok {
		e.FindChar(v, e.lastFind.ch)
	}
}

func (e *Engine) findCharOnce(verb byte, ch rune) {
	row := e.rowAt(e.Cursor.Line)
	switch verb {
	case 'f':
		for i := e.Cursor.Col + 1; i < len(row); i++ {
			if e.runeAt(e.Cursor.Line, i) == ch {
				e.Cursor.Col = i
				return
			}
		}
	case 'F':
		for i := e.Cursor.Col - 1; i >= 0; i-- {
			if e.runeAt(e.Cursor.Line, i) == ch {
				e.Cursor.Col = i
				return
			}
		}
	case 't':
		for i := e.Cursor.Col + 2; i < len(row); i++ {
			if e.runeAt(e.Cursor.Line, i) == ch {
				e.Cursor.Col = i - 1
				return
			}
		}
	case 'T':
		for i := e.Cursor.Col - 2; i >= 0; i-- {
			if e.runeAt(e.Cursor.Line, i) == ch {
				e.Cursor.Col = i + 1
				return
			}
		}
	}
}

// MatchingBracket implements %: jump to the bracket matching the one
// under (or after) the cursor, respecting nesting, among ()[]{}<>.
func (e *Engine) MatchingBracket() {
	pairs := map[rune]rune{'(': ')', '[': ']', '{': '}', '<': '>'}
	closers := map[rune]rune{')': '(', ']': '[', '}': '{', '>': '<'}

	line, col := e.Cursor.Line, e.Cursor.Col
	r := e.runeAt(line, col)
	if _, isOpen := pairs[r]; !isOpen {
		if _, isClose := closers[r]; !isClose {
			// Search forward on the line for the first bracket.
			row := e.rowAt(line)
			found := false
			for i := col; i < len(row); i++ {
				cr := e.runeAt(line, i)
				if _, ok := pairs[cr]; ok {
					col, r, found = i, cr, true
					break
				}
				if _, ok := closers[cr]; ok {
					col, r, found = i, cr, true
					break
				}
			}
			if !found {
				return
			}
		}
	}

	if closeCh, isOpen := pairs[r]; isOpen {
		depth := 1
		l, c := line, col
		for {
			if !e.advanceAt(&l, &c) {
				return
			}
			cr := e.runeAt(l, c)
			if cr == r {
				depth++
			} else if cr == closeCh {
				depth--
				if depth == 0 {
					e.Cursor.Line, e.Cursor.Col = l, c
					return
				}
			}
		}
	}
	if openCh, isClose := closers[r]; isClose {
		depth := 1
		l, c := line, col
		for {
			if !e.retreatAt(&l, &c) {
				return
			}
			cr := e.runeAt(l, c)
			if cr == r {
				depth++
			} else if cr == openCh {
				depth--
				if depth == 0 {
					e.Cursor.Line, e.Cursor.Col = l, c
					return
				}
			}
		}
	}
}

func (e *Engine) advanceAt(line, col *int) bool {
	if *col < e.cols()-1 {
		*col++
		return true
	}
	if *line >= e.totalLines()-1 {
		return false
	}
	*line++
	*col = 0
	return true
}

func (e *Engine) retreatAt(line, col *int) bool {
	if *col > 0 {
		*col--
		return true
	}
	if *line <= 0 {
		return false
	}
	*line--
	*col = e.cols() - 1
	return true
}
