package exchange

import "github.com/signalsfoundry/switchboard-simulator/model"

// cableEnd is one of the console's two plugs: stowed, in the operator's
// hand, or seated in a line's jack.
type cableEnd struct {
	line *Line // nil while unplugged
}

// Console is the operator's patch unit: two cable ends used to bridge a
// caller's line to a destination line, a ringer crank, and a monitor switch
// for the listening circuit.
//
// Every operation tolerates mis-clicks: grabbing a plugged cable, plugging
// into a busy jack or ringing with a cable loose are silent no-ops, never
// errors. All methods run under the session lock.
type Console struct {
	id      string
	session *Session

	source      cableEnd
	destination cableEnd

	// monitoring is the operator's listening-circuit switch.
	monitoring bool

	// Transient drag state. held gates which actions are valid; it is
	// not part of the call-state contract.
	held    CableEndKind
	holding bool
	hovered *Line
}

func newConsole(id string, s *Session) *Console {
	return &Console{id: id, session: s}
}

// ID returns the console identifier.
func (con *Console) ID() string { return con.id }

// Monitoring reports the state of the monitor switch.
func (con *Console) Monitoring() bool { return con.monitoring }

func (con *Console) end(kind CableEndKind) *cableEnd {
	if kind == DestinationEnd {
		return &con.destination
	}
	return &con.source
}

// Grab starts dragging a cable end. Only a stowed (unplugged) end can be
// grabbed, and only one end at a time.
func (con *Console) Grab(kind CableEndKind) {
	if con.holding || con.end(kind).line != nil {
		return
	}
	con.holding = true
	con.held = kind
	con.hovered = nil
	con.session.listener.CableVisualMoved(con.id, kind, nil)
}

// MoveTo updates which line the held cable end is hovering; nil means open
// board space.
func (con *Console) MoveTo(line *Line) {
	if !con.holding {
		return
	}
	con.hovered = line
	var id *model.LineID
	if line != nil {
		lineID := line.ID()
		id = &lineID
	}
	con.session.listener.CableVisualMoved(con.id, con.held, id)
}

// Release drops the held cable. Over a free jack it seats the plug; over a
// busy jack or open space the cable springs back to the console.
func (con *Console) Release() {
	if !con.holding {
		return
	}
	kind := con.held
	hovered := con.hovered
	con.holding = false
	con.hovered = nil

	if hovered == nil || !hovered.Patch(con, kind) {
		// Sprang back; nothing changed.
		con.session.listener.CableVisualMoved(con.id, kind, nil)
		return
	}

	con.end(kind).line = hovered
	con.session.listener.IndicatorToggled(con.id, kind.indicator(), true)

	// Seating the source plug answers whatever call is waiting on that
	// line.
	if kind == SourceEnd {
		if call := hovered.Occupant(); call != nil {
			call.OperatorListening(con.monitoring)
		}
	}
}

// Unplug pulls a seated cable end out of its jack. Unplugging a line that
// carries a live call disconnects it.
func (con *Console) Unplug(kind CableEndKind) {
	end := con.end(kind)
	if end.line == nil {
		return
	}
	line := end.line
	end.line = nil
	line.Unpatch()
	con.session.listener.IndicatorToggled(con.id, kind.indicator(), false)
}

// Ring cranks the ringer. It only carries when both ends are seated, and
// forwards to the call occupying the source line with the destination line
// as the rung target.
func (con *Console) Ring() {
	if con.source.line == nil || con.destination.line == nil {
		return
	}
	call := con.source.line.Occupant()
	if call == nil {
		return
	}
	call.DestinationRung(con.destination.line)
}

// ToggleMonitor flips the listening circuit and, when the source plug
// carries a live call, re-raises OperatorListening so the operator can
// listen in or step away without breaking the call.
func (con *Console) ToggleMonitor() {
	con.monitoring = !con.monitoring
	con.session.listener.IndicatorToggled(con.id, IndicatorMonitor, con.monitoring)

	if con.source.line != nil {
		if call := con.source.line.Occupant(); call != nil {
			call.OperatorListening(con.monitoring)
		}
	}
}

func (k CableEndKind) indicator() Indicator {
	if k == DestinationEnd {
		return IndicatorDestination
	}
	return IndicatorSource
}
