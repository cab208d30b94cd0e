package copymode

import (
	"fmt"
	"strconv"
)

// Result is what executing a send-keys -X verb produced, beyond engine
// state mutation: yanked text and, for the copy-pipe family, the shell
// command the dispatcher (C10) should pipe it to.
type Result struct {
	Text       string
	PipeCmd    string
	ShouldExit bool // true once the verb should end copy mode (cancel)
}

// ExecuteVerb runs one tmux-compatible `send-keys -X` sub-verb name
// against the engine, per the catalogue spec.md §4.7 lists. buffers is
// the session's shared paste-buffer ring; verbs that don't yank ignore
// it.
func (e *Engine) ExecuteVerb(verb string, args []string, buffers *Buffers) (Result, error) {
	switch verb {
	case "cursor-up":
		e.MoveUp()
	case "cursor-down":
		e.MoveDown()
	case "cursor-left":
		e.MoveLeft()
	case "cursor-right":
		e.MoveRight()
	case "start-of-line":
		e.StartOfLine()
	case "end-of-line":
		e.EndOfLine()
	case "back-to-indentation":
		e.FirstNonBlank()
	case "next-word":
		e.NextWord()
	case "previous-word":
		e.PrevWord()
	case "next-word-end":
		e.NextWordEnd()
	case "next-space":
		e.NextBigWord()
	case "previous-space":
		e.PrevBigWord()
	case "next-space-end":
		e.NextBigWordEnd()
	case "top-line":
		e.TopLine()
	case "middle-line":
		e.MiddleLine()
	case "bottom-line":
		e.BottomLine()
	case "history-top":
		e.HistoryTop()
	case "history-bottom":
		e.HistoryBottom()
	case "halfpage-up":
		e.HalfPageUp()
	case "halfpage-down":
		e.HalfPageDown()
	case "page-up":
		e.PageUp()
	case "page-down":
		e.PageDown()
	case "scroll-up":
		e.ScrollPage(-1)
	case "scroll-down":
		e.ScrollPage(1)
	case "next-paragraph":
		e.NextParagraph()
	case "previous-paragraph":
		e.PreviousParagraph()
	case "next-matching-bracket":
		e.MatchingBracket()

	case "begin-selection":
		e.BeginSelection()
	case "select-line":
		e.SelectLine()
	case "rectangle-toggle":
		e.RectangleToggle()
	case "other-end":
		e.OtherEnd()
	case "clear-selection":
		e.ClearSelection()
	case "stop-selection":
		e.StopSelection()

	case "copy-selection":
		return Result{Text: e.CopySelection(buffers, false)}, nil
	case "copy-selection-and-cancel":
		return Result{Text: e.CopySelection(buffers, true), ShouldExit: true}, nil
	case "copy-selection-no-clear":
		return Result{Text: e.CopySelection(buffers, false)}, nil
	case "copy-pipe":
		text := e.CopySelection(buffers, false)
		return Result{Text: text, PipeCmd: firstArg(args)}, nil
	case "copy-pipe-and-cancel":
		text := e.CopySelection(buffers, true)
		return Result{Text: text, PipeCmd: firstArg(args), ShouldExit: true}, nil
	case "append-selection":
		return Result{Text: e.AppendSelection(buffers, false)}, nil
	case "append-selection-and-cancel":
		return Result{Text: e.AppendSelection(buffers, true), ShouldExit: true}, nil
	case "copy-line":
		return Result{Text: e.CopyLine(buffers)}, nil
	case "copy-end-of-line":
		return Result{Text: e.CopyEndOfLine(buffers)}, nil

	case "goto-line":
		n, err := strconv.Atoi(firstArg(args))
		if err != nil {
			return Result{}, fmt.Errorf("copymode: goto-line requires a numeric argument: %w", err)
		}
		e.Cursor.Line = n
		e.clampCursor()

	case "jump-forward":
		e.FindChar('f', firstRune(args))
	case "jump-backward":
		e.FindChar('F', firstRune(args))
	case "jump-to-forward":
		e.FindChar('t', firstRune(args))
	case "jump-to-backward":
		e.FindChar('T', firstRune(args))
	case "jump-again":
		e.RepeatFind()
	case "jump-reverse":
		e.ReverseFind()

	case "search-forward":
		e.BeginSearch(true)
		if q := firstArg(args); q != "" {
			e.Search.Query = q
			e.ExecuteSearch()
		}
	case "search-backward":
		e.BeginSearch(false)
		if q := firstArg(args); q != "" {
			e.Search.Query = q
			e.ExecuteSearch()
		}
	case "search-forward-incremental":
		e.Search.Forward = true
		if q := firstArg(args); q != "" {
			e.Search.Query = q
			e.ExecuteSearch()
		}
	case "search-backward-incremental":
		e.Search.Forward = false
		if q := firstArg(args); q != "" {
			e.Search.Query = q
			e.ExecuteSearch()
		}
	case "search-again":
		e.SearchAgain()
	case "search-reverse":
		e.SearchReverse()

	case "cancel":
		e.ClearSelection()
		return Result{ShouldExit: true}, nil

	default:
		return Result{}, fmt.Errorf("copymode: unknown send-keys -X verb: %s", verb)
	}
	return Result{}, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func firstRune(args []string) rune {
	a := firstArg(args)
	if a == "" {
		return 0
	}
	return []rune(a)[0]
}
