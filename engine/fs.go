package engine

import "github.com/jondurrant/tst-telemetry/pkg"

// FsHooks are the four file-system callbacks an engine can delegate to
// (spec §4.6). Write/Append/Read/Rename requests have no corresponding
// hook in this protocol version — they always fail, the same as any
// request whose hook is unset.
type FsHooks interface {
	// List returns a directory listing as opaque, caller-defined bytes.
	List(path string) (ok bool, data []byte)

	// Upload writes data at offset into path (host-to-device write).
	Upload(path string, data []byte, offset, size uint32) Status

	// Download reads size bytes at offset from path. size == 0 means
	// "remainder of file".
	Download(path string, offset, size uint32) (ok bool, data []byte)

	// Delete removes path.
	Delete(path string) Status
}

// SetFsHooks installs the file-system callback set. Passing nil clears
// it, causing every Fs request to fail.
func (e *Engine) SetFsHooks(hooks FsHooks) {
	e.fsHooks = hooks
}

// FsRequest directly invokes the installed file-system hook for op and
// enqueues the resulting FsResponse, fragmenting as needed. This is the
// same path the inbound dispatch of a wire Fs request frame uses
// (engine.Run -> handleFs -> processFsRequest); FsRequest exists so a
// host can drive the same response machinery without round-tripping
// bytes through Rx.
//
// Per spec §9's Open Question, a request whose encoded frame (header +
// path + data) would exceed the interface's max_payload is a known
// limitation, not fragmented: it fails immediately.
func (e *Engine) FsRequest(deviceName, interfaceName string, op FsOp, path string, offset uint32, data []byte) error {
	dev, ok := e.device(deviceName)
	if !ok {
		return StatusNotFound
	}
	ifc, ok := e.iface(dev, interfaceName)
	if !ok {
		return StatusNotFound
	}
	reqSize := fsRequestHeaderSize + len(path) + len(data)
	if uint32(reqSize) > ifc.maxPayload {
		return StatusGeneralFail
	}
	e.processFsRequest(dev, ifc, fsRequestMessage{
		deviceID: dev.id,
		op:       op,
		offset:   offset,
		dataSize: uint32(len(data)),
		path:     path,
		data:     data,
	})
	return nil
}

func (e *Engine) handleFs(dev *deviceRecord, ifc *interfaceRecord, frame []byte) {
	req, ok := decodeFsRequest(frame)
	if !ok {
		pkg.LogDebug(pkg.ComponentFs, "short or malformed Fs request, discarded")
		e.countDropped(ifc, "short-frame")
		return
	}
	e.processFsRequest(dev, ifc, req)
}

func (e *Engine) processFsRequest(dev *deviceRecord, ifc *interfaceRecord, req fsRequestMessage) {
	var status Status
	var data []byte

	switch req.op {
	case FsOpList:
		if e.fsHooks == nil {
			status = StatusGeneralFail
			break
		}
		ok, d := e.fsHooks.List(req.path)
		status, data = statusFromOk(ok), d
	case FsOpUpload:
		if e.fsHooks == nil {
			status = StatusGeneralFail
			break
		}
		status = e.fsHooks.Upload(req.path, req.data, req.offset, req.dataSize)
	case FsOpDownload:
		if e.fsHooks == nil {
			status = StatusGeneralFail
			break
		}
		ok, d := e.fsHooks.Download(req.path, req.offset, req.dataSize)
		status, data = statusFromOk(ok), d
	case FsOpDelete:
		if e.fsHooks == nil {
			status = StatusGeneralFail
			break
		}
		status = e.fsHooks.Delete(req.path)
	default:
		// Write, Append, Read, Rename: no hook exists for these ops in
		// this protocol version; treat exactly like an unset hook.
		status = StatusGeneralFail
	}

	pkg.LogDebug(pkg.ComponentFs, "fs request processed",
		"device", dev.name, "interface", ifc.name, "op", uint8(req.op), "status", status.String())

	e.pushFsResponse(ifc, dev.id, req.op, status, data)
}

func statusFromOk(ok bool) Status {
	if ok {
		return StatusOk
	}
	return StatusNotFound
}

// pushFsResponse fragments data per spec.md §6's literal Fs response
// layout and enqueues it. Each fragment's data_size field carries only
// that fragment's own length (see encodeFsResponseFragment) — a
// response split across more than one fragment cannot be reassembled
// from the wire data alone, matching the original library's behavior.
func (e *Engine) pushFsResponse(ifc *interfaceRecord, deviceID uint16, op FsOp, status Status, data []byte) {
	perFrag := int(ifc.maxPayload) - fsResponseHeaderSize
	if perFrag <= 0 {
		pkg.LogDebug(pkg.ComponentFs, "maxPayload too small for fs response header, dropping")
		e.countDropped(ifc, "payload-too-small")
		return
	}
	total := fragmentCount(len(data), perFrag)
	for f := 0; f < total; f++ {
		chunk := fragmentSlice(data, f, perFrag)
		ifc.tx.PushTail(encodeFsResponseFragment(deviceID, op, status, chunk))
	}
	e.observeQueueDepth(ifc)
}
