package render

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"psmux/internal/session"
)

var formatVarPattern = regexp.MustCompile(`#\{([^}]+)\}`)

// DefaultStatusFormat matches the teacher's defaultWindowListFormat shape,
// repurposed as the out-of-the-box single-line status string.
const DefaultStatusFormat = "#{session_name}: #{window_index} #{window_name} (#{window_panes} panes)"

// ExpandStatusFormat resolves #{var} placeholders against win (and its
// parent session, reached through win.Session) so the frame ships
// pre-expanded status text rather than a template the client must
// understand, per spec.md §3's "Multi-line status format strings
// (pre-expanded)". A nil window yields a best-effort expansion using only
// whatever a nil lookup defines.
//
// Adapted from myT-x's internal/tmux/format.go expandFormat/
// lookupFormatVariable pair, generalized from a single-pane variable set
// to the window-level variables a status line actually needs, and from
// the teacher's flat TmuxPane type to this module's session.Window/
// session.Session snapshot types.
func ExpandStatusFormat(format string, win *session.Window) string {
	format = strings.TrimSpace(format)
	if format == "" {
		format = DefaultStatusFormat
	}
	return formatVarPattern.ReplaceAllStringFunc(format, func(match string) string {
		parts := formatVarPattern.FindStringSubmatch(match)
		if len(parts) != 2 {
			return ""
		}
		return lookupStatusVariable(parts[1], win)
	})
}

func lookupStatusVariable(name string, win *session.Window) string {
	var sess *session.Session
	if win != nil {
		sess = win.Session
	}

	switch name {
	case "window_index":
		if win == nil {
			return "0"
		}
		return strconv.Itoa(win.ID)
	case "window_name":
		if win == nil {
			return ""
		}
		return win.Name
	case "window_panes":
		if win == nil {
			return "0"
		}
		return strconv.Itoa(len(win.Panes))
	case "window_active":
		if win == nil || sess == nil {
			return "0"
		}
		if sess.ActiveWindowID == win.ID {
			return "1"
		}
		return "0"
	case "session_name":
		if sess == nil {
			return ""
		}
		return sess.Name
	case "session_windows":
		if sess == nil {
			return "0"
		}
		return strconv.Itoa(len(sess.Windows))
	case "session_created":
		if sess == nil {
			return "0"
		}
		return strconv.FormatInt(sess.CreatedAt.Unix(), 10)
	case "session_created_human":
		if sess == nil {
			return time.Unix(0, 0).Format("Mon Jan _2 15:04:05 2006")
		}
		return sess.CreatedAt.Format("Mon Jan _2 15:04:05 2006")
	default:
		return ""
	}
}
