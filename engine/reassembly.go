package engine

import "github.com/jondurrant/tst-telemetry/pkg"

// reassembleVariableSet drives the per-interface inbound reassembly
// state machine for VariableSet frames (spec §4.4 consumer side):
//
//   - Idle + fragment 0, total == 1: apply the write immediately.
//   - Idle + fragment 0, total > 1: start collecting; a reassembly
//     already in flight is discarded first.
//   - Collecting + next fragment in sequence: append; commit on the
//     last fragment.
//   - Collecting + out-of-sequence fragment: discard both the
//     in-flight buffer and the incoming frame, return to Idle.
func (e *Engine) reassembleVariableSet(dev *deviceRecord, ifc *interfaceRecord, m dataMessage) {
	r := &ifc.reassembly

	if m.fragmentNumber == 0 {
		if m.totalFragments <= 1 {
			e.commitVariableWrite(dev, ifc, m.structID, m.structOffset, m.data)
			return
		}
		if r.active {
			pkg.LogDebug(pkg.ComponentEngine, "reassembly restarted mid-flight, discarding previous buffer",
				"device", dev.name, "interface", ifc.name)
			e.countDropped(ifc, "reassembly-restart")
		}
		r.active = true
		r.structID = m.structID
		r.structOffset = m.structOffset
		r.variableSize = m.variableSize
		r.expected = m.totalFragments
		r.nextFragment = 1
		r.buf = make([]byte, m.variableSize)
		r.filled = copy(r.buf, m.data)
		return
	}

	if !r.active || m.fragmentNumber != r.nextFragment || m.fragmentNumber >= r.expected {
		if r.active {
			pkg.LogDebug(pkg.ComponentEngine, "out-of-sequence fragment, discarding reassembly",
				"device", dev.name, "interface", ifc.name,
				"got", m.fragmentNumber, "want", r.nextFragment)
		}
		r.reset()
		e.countDropped(ifc, "out-of-sequence-fragment")
		return
	}

	n := copy(r.buf[r.filled:], m.data)
	r.filled += n
	r.nextFragment++

	if m.fragmentNumber == r.expected-1 {
		structID, offset, buf := r.structID, r.structOffset, r.buf
		r.reset()
		e.commitVariableWrite(dev, ifc, structID, offset, buf)
	}
}

// commitVariableWrite performs the single memcpy that commits a
// reassembled (or single-fragment) VariableSet into the registered
// struct region. A write whose target falls outside the struct is
// silently discarded — no partial writes (spec §3).
func (e *Engine) commitVariableWrite(dev *deviceRecord, ifc *interfaceRecord, structID, offset uint16, data []byte) {
	sr := lookupStructByID(dev, structID)
	if sr == nil {
		pkg.LogDebug(pkg.ComponentEngine, "VariableSet on unknown struct, discarded", "structID", structID)
		e.countDropped(ifc, "no-struct")
		return
	}
	if !inRange(len(sr.region), offset, uint16(len(data))) {
		pkg.LogDebug(pkg.ComponentEngine, "VariableSet out of range, discarded",
			"struct", sr.name, "offset", offset, "size", len(data), "region", len(sr.region))
		e.countDropped(ifc, "out-of-range")
		return
	}
	copy(sr.region[offset:int(offset)+len(data)], data)
}
