package engine

import (
	"github.com/jondurrant/tst-telemetry/internal/hashmap"
	"github.com/jondurrant/tst-telemetry/pkg"
)

// Engine is one independent instance of the TST protocol: a registry
// of devices/interfaces/structs plus whatever file-system and firmware
// hooks the host installed. Nothing here is internally synchronized
// (spec §5); a host driving Rx/Tx/Run/Tick from more than one goroutine
// must supply its own mutex around the whole surface.
type Engine struct {
	devices    *hashmap.Map[*deviceRecord]
	fsHooks    FsHooks
	updateHook UpdateHook
	metrics    *Metrics
}

// New returns an independent, empty Engine. Callers construct one
// Engine per protocol instance; there is no process-wide registry.
func New() *Engine {
	return &Engine{devices: hashmap.New[*deviceRecord](4)}
}

// Rx enqueues one inbound frame for deviceName/interfaceName and runs
// the dispatch loop to exhaustion. frame must be exactly one complete
// wire frame — the engine performs no re-framing.
func (e *Engine) Rx(deviceName, interfaceName string, frame []byte) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	ifc.rx.PushTail(buf)
	e.observeQueueDepth(ifc)
	e.Run()
	return nil
}

// Run drains every registered interface's Rx queue to exhaustion,
// dispatching each frame by its leading mode byte. It is the engine()
// entry point of spec §2/§4.5.
func (e *Engine) Run() {
	e.devices.Each(func(_ uint32, dev *deviceRecord) bool {
		dev.interfaces.Each(func(_ uint32, ifc *interfaceRecord) bool {
			for {
				frame, ok := ifc.rx.PopHead()
				if !ok {
					break
				}
				e.dispatch(dev, ifc, frame)
			}
			return true
		})
		return true
	})
}

// Tx drains one outbound frame for deviceName/interfaceName. It
// returns StatusGeneralFail if the interface is offline, regardless of
// how many frames are queued (spec §4.7), and StatusNotFound if the
// interface is online but has nothing queued.
func (e *Engine) Tx(deviceName, interfaceName string) ([]byte, error) {
	dev, ok := e.device(deviceName)
	if !ok {
		return nil, StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return nil, StatusNotFound
	}
	if !ifc.online {
		return nil, StatusGeneralFail
	}
	frame, ok := ifc.tx.PopHead()
	if !ok {
		return nil, StatusNotFound
	}
	e.observeQueueDepth(ifc)
	return frame, nil
}

// dispatch classifies one inbound frame by its leading mode byte and
// applies the action from spec §4.5's table. Frames shorter than the
// common 3-byte prefix are silently discarded, per spec §3.
func (e *Engine) dispatch(dev *deviceRecord, ifc *interfaceRecord, frame []byte) {
	if len(frame) < commonHeaderSize {
		pkg.LogDebug(pkg.ComponentEngine, "frame shorter than common header, discarded",
			"device", dev.name, "interface", ifc.name, "len", len(frame))
		return
	}
	mode, _ := getCommon(frame)
	e.countFrame(ifc, mode)

	switch mode {
	case ModeOnline:
		ifc.online = true
		pkg.LogInfo(pkg.ComponentEngine, "interface online", "device", dev.name, "interface", ifc.name)
	case ModeOffline:
		ifc.online = false
		pkg.LogInfo(pkg.ComponentEngine, "interface offline", "device", dev.name, "interface", ifc.name)
	case ModeVariableGet:
		e.handleVariableGet(dev, ifc, frame)
	case ModeVariableSet:
		e.handleVariableSet(dev, ifc, frame)
	case ModeMonitor:
		// no-op: a device never acts on an inbound Monitor frame.
	case ModeUpdate:
		e.handleUpdate(dev, ifc, frame)
	case ModeFs:
		e.handleFs(dev, ifc, frame)
	default:
		pkg.LogDebug(pkg.ComponentEngine, "unknown mode, discarded",
			"device", dev.name, "interface", ifc.name, "mode", uint8(mode))
		e.countDropped(ifc, "unknown-mode")
	}
}

func (e *Engine) handleVariableGet(dev *deviceRecord, ifc *interfaceRecord, frame []byte) {
	m, ok := decodeDataMessage(frame)
	if !ok {
		pkg.LogDebug(pkg.ComponentCodec, "short VariableGet frame, discarded")
		e.countDropped(ifc, "short-frame")
		return
	}
	sr := lookupStructByID(dev, m.structID)
	if sr == nil {
		pkg.LogDebug(pkg.ComponentEngine, "VariableGet on unknown struct, discarded", "structID", m.structID)
		e.countDropped(ifc, "no-struct")
		return
	}
	if !inRange(len(sr.region), m.structOffset, m.variableSize) {
		pkg.LogDebug(pkg.ComponentEngine, "VariableGet out of range, discarded")
		e.countDropped(ifc, "out-of-range")
		return
	}
	data := make([]byte, m.variableSize)
	copy(data, sr.region[m.structOffset:int(m.structOffset)+int(m.variableSize)])
	e.pushDataFrame(ifc, ModeVariableSet, dev.id, m.structID, m.structOffset, data)
}

func (e *Engine) handleVariableSet(dev *deviceRecord, ifc *interfaceRecord, frame []byte) {
	m, ok := decodeDataMessage(frame)
	if !ok {
		pkg.LogDebug(pkg.ComponentCodec, "short VariableSet frame, discarded")
		e.countDropped(ifc, "short-frame")
		return
	}
	e.reassembleVariableSet(dev, ifc, m)
}

// pushDataFrame fragments payload per spec §4.4's producer algorithm
// and pushes each fragment onto the interface's Tx queue.
func (e *Engine) pushDataFrame(ifc *interfaceRecord, mode Mode, deviceID, structID, offset uint16, payload []byte) {
	perFrag := int(ifc.maxPayload) - dataHeaderSize
	if perFrag <= 0 {
		pkg.LogDebug(pkg.ComponentEngine, "maxPayload too small for data header, dropping")
		e.countDropped(ifc, "payload-too-small")
		return
	}
	total := fragmentCount(len(payload), perFrag)
	for f := 0; f < total; f++ {
		chunk := fragmentSlice(payload, f, perFrag)
		buf := make([]byte, dataHeaderSize+len(chunk))
		encodeDataHeader(buf, mode, dataMessage{
			deviceID:       deviceID,
			totalFragments: uint8(total),
			fragmentNumber: uint8(f),
			structID:       structID,
			structOffset:   offset,
			variableSize:   uint16(len(payload)),
		})
		copy(buf[dataHeaderSize:], chunk)
		ifc.tx.PushTail(buf)
	}
	e.observeQueueDepth(ifc)
}

func inRange(regionLen int, offset, size uint16) bool {
	return int(offset)+int(size) <= regionLen
}

func lookupStructByID(dev *deviceRecord, id uint16) *structRecord {
	v, ok := dev.structs.Get(uint32(id))
	if !ok {
		return nil
	}
	return v
}

// VariablesSet builds an outbound VariableSet announcement carrying
// data and enqueues it (fragmenting if needed). It does not write the
// local struct region itself: per spec §4.5, VariableSet's outbound
// effect is "none" on the sender — the host already owns and wrote the
// region directly; this call only tells the peer about the new value.
// The region is written locally only when a VariableSet frame is later
// received and dispatched (e.g. looped back over the wire).
func (e *Engine) VariablesSet(deviceName, interfaceName, structName string, offset uint16, data []byte) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}
	sr, ok := e.structRecord(dev, structName)
	if !ok {
		return StatusNoStructFound
	}
	if !inRange(len(sr.region), offset, uint16(len(data))) {
		return StatusInvalidParameter
	}
	e.pushDataFrame(ifc, ModeVariableSet, dev.id, sr.id, offset, data)
	return nil
}

// VariablesGet builds an outbound VariableGet request asking the peer
// to report the current value of a region. The response, when it
// arrives as an inbound VariableSet, is handled by the normal dispatch
// path (the engine performs no request/response correlation).
func (e *Engine) VariablesGet(deviceName, interfaceName, structName string, offset, size uint16) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}
	sr, ok := e.structRecord(dev, structName)
	if !ok {
		return StatusNoStructFound
	}
	if !inRange(len(sr.region), offset, size) {
		return StatusInvalidParameter
	}
	buf := make([]byte, dataHeaderSize)
	encodeDataHeader(buf, ModeVariableGet, dataMessage{
		deviceID:       dev.id,
		totalFragments: 1,
		fragmentNumber: 0,
		structID:       sr.id,
		structOffset:   offset,
		variableSize:   size,
	})
	ifc.tx.PushTail(buf)
	e.observeQueueDepth(ifc)
	return nil
}

// MonitorSend enqueues a log/text message as one or more Monitor
// frames, fragmenting as needed, and applies the 20-frame ring cap
// (spec §4.7, and SPEC_FULL.md §9 for the online-state resolution).
func (e *Engine) MonitorSend(deviceName, interfaceName, text string) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}

	perFrag := int(ifc.maxPayload) - monitorHeaderSize
	if perFrag <= 0 {
		return StatusInvalidParameter
	}
	payload := []byte(text)
	total := fragmentCount(len(payload), perFrag)
	for f := 0; f < total; f++ {
		chunk := fragmentSlice(payload, f, perFrag)
		frame := encodeMonitorFragment(dev.id, uint8(total), uint8(f), uint16(len(payload)), chunk)
		for ifc.tx.Len() >= monitorQueueCap {
			ifc.tx.DropOldest()
		}
		ifc.tx.PushTail(frame)
	}
	e.observeQueueDepth(ifc)
	return nil
}
