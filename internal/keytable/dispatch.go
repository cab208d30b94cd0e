package keytable

import "time"

// Dispatcher resolves a key event against a Registry following the
// dispatch order spec.md §4.8 describes: a one-shot temporary table
// override, then the configured prefix chords arming Prefix mode, then
// the root table, falling through to PTY forwarding; and, once Prefix is
// armed, the prefix table with repeatable-binding re-arming.
type Dispatcher struct {
	registry *Registry

	primaryPrefix   Chord
	secondaryPrefix Chord
	escapeTimeout   time.Duration

	prefixArmed bool
	armedAt     time.Time

	tempTable string
}

// NewDispatcher creates a Dispatcher over registry with the given prefix
// chords and escape timeout (the window within which a second prefix
// press is folded into the prefix table instead of starting a new arm).
func NewDispatcher(registry *Registry, primaryPrefix, secondaryPrefix Chord, escapeTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		primaryPrefix:   primaryPrefix,
		secondaryPrefix: secondaryPrefix,
		escapeTimeout:   escapeTimeout,
	}
}

// Outcome is what the dispatcher decided to do with one key event.
type Outcome struct {
	// Matched is true when a binding fired; Command is its chain.
	Matched bool
	Command []string

	// Forward is true when the key should instead be written to the
	// active PTY using Encode.
	Forward bool

	// Armed is true when this event put the dispatcher into Prefix mode
	// (nothing is forwarded or executed for the arming key itself).
	Armed bool
}

// SetTemporaryTable arms a one-shot table override for the very next key
// event, mirroring switch-client -T.
func (d *Dispatcher) SetTemporaryTable(name string) {
	d.tempTable = name
}

// PrimaryPrefix and SecondaryPrefix report the configured prefix chords,
// for status-line display.
func (d *Dispatcher) PrimaryPrefix() Chord   { return d.primaryPrefix }
func (d *Dispatcher) SecondaryPrefix() Chord { return d.secondaryPrefix }

// Registry exposes the underlying table registry, for list-keys and
// bindings-list rendering.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch resolves one chord at time `now`.
func (d *Dispatcher) Dispatch(c Chord, now time.Time) Outcome {
	if d.tempTable != "" {
		table := d.registry.Table(d.tempTable)
		d.tempTable = ""
		if b, ok := table.Lookup(c); ok {
			return Outcome{Matched: true, Command: b.Command}
		}
		return Outcome{Forward: true}
	}

	if d.prefixArmed {
		if d.escapeTimeout > 0 && now.Sub(d.armedAt) > d.escapeTimeout {
			d.prefixArmed = false
		} else {
			d.prefixArmed = false
			b, ok := d.registry.Table(Prefix).Lookup(c)
			if !ok {
				return Outcome{}
			}
			if b.Repeatable {
				d.prefixArmed = true
				d.armedAt = now
			}
			return Outcome{Matched: true, Command: b.Command}
		}
	}

	if c == d.primaryPrefix || (d.secondaryPrefix.Key != "" && c == d.secondaryPrefix) {
		d.prefixArmed = true
		d.armedAt = now
		return Outcome{Armed: true}
	}

	if b, ok := d.registry.Table(Root).Lookup(c); ok {
		return Outcome{Matched: true, Command: b.Command}
	}
	return Outcome{Forward: true}
}

// DispatchCopyMode consults the copy-mode (or copy-mode-vi, when vi is
// true) table first, so user bindings can intercept a motion before the
// built-in handler runs, per spec.md §4.8's Copy/CopySearch dispatch
// order. ok is false when no table entry matched and the caller should
// fall back to its built-in motion/selection handler for c.
func (d *Dispatcher) DispatchCopyMode(c Chord, vi bool) (Outcome, bool) {
	name := CopyMode
	if vi {
		name = CopyModeVi
	}
	b, ok := d.registry.Table(name).Lookup(c)
	if !ok {
		return Outcome{}, false
	}
	return Outcome{Matched: true, Command: b.Command}, true
}
