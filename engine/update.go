package engine

import (
	"hash/crc32"

	"github.com/jondurrant/tst-telemetry/pkg"
)

// UpdateHook receives firmware-update operations once their payload has
// passed the CRC gate (spec §4.5). seq is the chunk sequence number
// carried by the request; it is opaque to the engine and only
// meaningful to the hook.
type UpdateHook interface {
	Update(op UpdateOp, seq uint32, data []byte) Status
}

// SetUpdateHook installs the firmware-update callback. Passing nil
// clears it, causing every Update request to fail.
func (e *Engine) SetUpdateHook(hook UpdateHook) {
	e.updateHook = hook
}

// handleUpdate decodes an inbound Update request and, for op == Data,
// verifies the payload's CRC-32 (IEEE polynomial) before ever calling
// the installed hook. A mismatch fails the request without invoking
// the hook at all, per spec §4.5's CRC gate. Any op outside
// {Start, Data, End} fails closed the same way the original library's
// tstProcessUpdateRequest does: the hook is never invoked.
func (e *Engine) handleUpdate(dev *deviceRecord, ifc *interfaceRecord, frame []byte) {
	req, ok := decodeUpdateRequest(frame)
	if !ok {
		pkg.LogDebug(pkg.ComponentUpdate, "short or malformed Update request, discarded")
		e.countDropped(ifc, "short-frame")
		return
	}

	switch req.op {
	case UpdateOpStart, UpdateOpEnd:
	case UpdateOpData:
		if computed := crc32.ChecksumIEEE(req.data); computed != req.crc {
			pkg.LogWarn(pkg.ComponentUpdate, "Update data CRC mismatch, rejecting without invoking hook",
				"device", dev.name, "interface", ifc.name, "seq", req.seq)
			e.countDropped(ifc, "crc-mismatch")
			e.pushUpdateResponse(ifc, dev.id, req.op, StatusUpdateFailed, req.crc, req.seq)
			return
		}
	default:
		pkg.LogDebug(pkg.ComponentUpdate, "unrecognized update_op, rejecting without invoking hook",
			"device", dev.name, "interface", ifc.name, "op", uint8(req.op))
		e.countDropped(ifc, "unknown-op")
		e.pushUpdateResponse(ifc, dev.id, req.op, StatusUpdateFailed, req.crc, req.seq)
		return
	}

	status := StatusUpdateFailed
	if e.updateHook != nil {
		status = e.updateHook.Update(req.op, req.seq, req.data)
	}
	e.pushUpdateResponse(ifc, dev.id, req.op, status, req.crc, req.seq)
}

// UpdateRequest builds and enqueues an outbound Update request frame on
// behalf of a host driving a firmware push. The CRC is computed here,
// so a caller can never send a request with a wrong checksum by
// accident; handleUpdate's gate exists for the inbound, wire-decoded
// direction.
func (e *Engine) UpdateRequest(deviceName, interfaceName string, op UpdateOp, seq uint32, data []byte) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}
	crc := crc32.ChecksumIEEE(data)
	frame := encodeUpdateRequestFrame(dev.id, op, seq, crc, data)
	if len(frame) > int(ifc.maxPayload) {
		return StatusGeneralFail
	}
	ifc.tx.PushTail(frame)
	e.observeQueueDepth(ifc)
	return nil
}

func (e *Engine) pushUpdateResponse(ifc *interfaceRecord, deviceID uint16, op UpdateOp, status Status, crc, seq uint32) {
	ifc.tx.PushTail(encodeUpdateResponse(deviceID, op, status, crc, seq))
	e.observeQueueDepth(ifc)
}
