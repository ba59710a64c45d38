package engine

import (
	"encoding/binary"
	"fmt"
)

// Mode is the 1-byte tag that opens every frame.
type Mode uint8

// Frame modes, fixed by the wire protocol.
const (
	ModeOnline      Mode = 0
	ModeOffline     Mode = 1
	ModeVariableGet Mode = 2
	ModeVariableSet Mode = 3
	ModeMonitor     Mode = 4
	ModeUpdate      Mode = 5
	ModeFs          Mode = 6
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeOnline:
		return "Online"
	case ModeOffline:
		return "Offline"
	case ModeVariableGet:
		return "VariableGet"
	case ModeVariableSet:
		return "VariableSet"
	case ModeMonitor:
		return "Monitor"
	case ModeUpdate:
		return "Update"
	case ModeFs:
		return "Fs"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// FsOp identifies a file-system request's operation.
type FsOp uint8

// File-system operations carried by an Fs frame.
const (
	FsOpList     FsOp = 0
	FsOpWrite    FsOp = 1
	FsOpAppend   FsOp = 2
	FsOpRead     FsOp = 3
	FsOpRename   FsOp = 4
	FsOpDelete   FsOp = 5
	FsOpUpload   FsOp = 6
	FsOpDownload FsOp = 7
)

// UpdateOp identifies a firmware-update request's operation.
type UpdateOp uint8

// Firmware-update operations carried by an Update frame.
const (
	UpdateOpStart UpdateOp = 0
	UpdateOpData  UpdateOp = 1
	UpdateOpEnd   UpdateOp = 2
)

// byteOrder packs every multi-byte wire field. The protocol is defined
// between a device and a co-located host that share endianness "by
// construction" (spec §6); NativeEndian realizes that assumption
// directly instead of hardcoding little-endian, so the engine behaves
// identically on a big-endian target.
var byteOrder = binary.NativeEndian

// Header sizes, in bytes, counting the 3-byte common prefix
// (mode + deviceId).
const (
	commonHeaderSize      = 3
	dataHeaderSize        = commonHeaderSize + 8  // + total_fragments, fragment_number, struct_id, struct_offset, variable_size
	monitorHeaderSize     = commonHeaderSize + 4  // + total_fragments, fragment_number, msg_len
	updateReqHeaderSize   = commonHeaderSize + 13 // + update_op, seq, crc, data_size
	updateRespHeaderSize  = commonHeaderSize + 10 // + update_op, status, crc, seq
	fsRequestHeaderSize   = commonHeaderSize + 11 // + fs_op, path_len, offset, data_size
	fsResponseHeaderSize  = commonHeaderSize + 6  // + fs_op, status, data_size
)

func putCommon(buf []byte, mode Mode, deviceID uint16) {
	buf[0] = byte(mode)
	byteOrder.PutUint16(buf[1:3], deviceID)
}

func getCommon(buf []byte) (mode Mode, deviceID uint16) {
	return Mode(buf[0]), byteOrder.Uint16(buf[1:3])
}

// dataMessage is the decoded form of a VariableGet/VariableSet frame.
type dataMessage struct {
	deviceID        uint16
	totalFragments  uint8
	fragmentNumber  uint8
	structID        uint16
	structOffset    uint16
	variableSize    uint16
	data            []byte
}

func encodeDataHeader(buf []byte, mode Mode, m dataMessage) {
	putCommon(buf, mode, m.deviceID)
	buf[3] = m.totalFragments
	buf[4] = m.fragmentNumber
	byteOrder.PutUint16(buf[5:7], m.structID)
	byteOrder.PutUint16(buf[7:9], m.structOffset)
	byteOrder.PutUint16(buf[9:11], m.variableSize)
}

// decodeDataMessage parses a VariableGet/VariableSet frame. ok is false
// if the frame is shorter than the fixed header, per spec §3: "An
// inbound frame shorter than its declared mode's fixed header is
// silently discarded."
func decodeDataMessage(buf []byte) (dataMessage, bool) {
	if len(buf) < dataHeaderSize {
		return dataMessage{}, false
	}
	_, deviceID := getCommon(buf)
	m := dataMessage{
		deviceID:       deviceID,
		totalFragments: buf[3],
		fragmentNumber: buf[4],
		structID:       byteOrder.Uint16(buf[5:7]),
		structOffset:   byteOrder.Uint16(buf[7:9]),
		variableSize:   byteOrder.Uint16(buf[9:11]),
	}
	if len(buf) > dataHeaderSize {
		m.data = buf[dataHeaderSize:]
	}
	return m, true
}

// monitorMessage is the decoded form of a Monitor frame.
type monitorMessage struct {
	deviceID       uint16
	totalFragments uint8
	fragmentNumber uint8
	msgLen         uint16
	text           []byte
}

func decodeMonitorMessage(buf []byte) (monitorMessage, bool) {
	if len(buf) < monitorHeaderSize {
		return monitorMessage{}, false
	}
	_, deviceID := getCommon(buf)
	m := monitorMessage{
		deviceID:       deviceID,
		totalFragments: buf[3],
		fragmentNumber: buf[4],
		msgLen:         byteOrder.Uint16(buf[5:7]),
	}
	if len(buf) > monitorHeaderSize {
		m.text = buf[monitorHeaderSize:]
	}
	return m, true
}

func encodeMonitorFragment(deviceID uint16, totalFragments, fragmentNumber uint8, msgLen uint16, chunk []byte) []byte {
	buf := make([]byte, monitorHeaderSize+len(chunk))
	putCommon(buf, ModeMonitor, deviceID)
	buf[3] = totalFragments
	buf[4] = fragmentNumber
	byteOrder.PutUint16(buf[5:7], msgLen)
	copy(buf[monitorHeaderSize:], chunk)
	return buf
}

// updateRequestMessage is the decoded form of an Update request frame.
type updateRequestMessage struct {
	deviceID uint16
	op       UpdateOp
	seq      uint32
	crc      uint32
	dataSize uint32
	data     []byte
}

// encodeUpdateRequestFrame builds a wire-format Update request frame.
// Used by tests and by any transport-facing code simulating a peer
// sending firmware data.
func encodeUpdateRequestFrame(deviceID uint16, op UpdateOp, seq, crc uint32, data []byte) []byte {
	buf := make([]byte, updateReqHeaderSize+len(data))
	putCommon(buf, ModeUpdate, deviceID)
	buf[3] = byte(op)
	byteOrder.PutUint32(buf[4:8], seq)
	byteOrder.PutUint32(buf[8:12], crc)
	byteOrder.PutUint32(buf[12:16], uint32(len(data)))
	copy(buf[updateReqHeaderSize:], data)
	return buf
}

func decodeUpdateRequest(buf []byte) (updateRequestMessage, bool) {
	if len(buf) < updateReqHeaderSize {
		return updateRequestMessage{}, false
	}
	_, deviceID := getCommon(buf)
	m := updateRequestMessage{
		deviceID: deviceID,
		op:       UpdateOp(buf[3]),
		seq:      byteOrder.Uint32(buf[4:8]),
		crc:      byteOrder.Uint32(buf[8:12]),
		dataSize: byteOrder.Uint32(buf[12:16]),
	}
	if len(buf) > updateReqHeaderSize {
		m.data = buf[updateReqHeaderSize:]
	}
	return m, true
}

func encodeUpdateResponse(deviceID uint16, op UpdateOp, status Status, crc, seq uint32) []byte {
	buf := make([]byte, updateRespHeaderSize)
	putCommon(buf, ModeUpdate, deviceID)
	buf[3] = byte(op)
	buf[4] = byte(status)
	byteOrder.PutUint32(buf[5:9], crc)
	byteOrder.PutUint32(buf[9:13], seq)
	return buf
}

// fsRequestMessage is the decoded form of an Fs request frame. Per the
// spec's own Open Questions, a request whose path+data exceeds a single
// frame is a known limitation rather than a correctness requirement:
// this engine never fragments the inbound request direction.
type fsRequestMessage struct {
	deviceID uint16
	op       FsOp
	offset   uint32
	dataSize uint32
	path     string
	data     []byte
}

func decodeFsRequest(buf []byte) (fsRequestMessage, bool) {
	if len(buf) < fsRequestHeaderSize {
		return fsRequestMessage{}, false
	}
	_, deviceID := getCommon(buf)
	pathLen := int(byteOrder.Uint16(buf[4:6]))
	offset := byteOrder.Uint32(buf[6:10])
	dataSize := byteOrder.Uint32(buf[10:14])
	rest := buf[fsRequestHeaderSize:]
	if len(rest) < pathLen {
		return fsRequestMessage{}, false
	}
	path := string(rest[:pathLen])
	data := rest[pathLen:]
	return fsRequestMessage{
		deviceID: deviceID,
		op:       FsOp(buf[3]),
		offset:   offset,
		dataSize: dataSize,
		path:     path,
		data:     data,
	}, true
}

// encodeFsResponseFragment builds one Fs response frame matching
// spec.md §6's literal layout: fs_op, status, data_size, data[]. A
// multi-fragment response carries the *chunk's* length as data_size on
// every fragment and no fragment index, matching
// _examples/original_source/exp/Blink/src/tst_library.c's
// tstFsProcessRequest — the wire format does not carry enough
// information for the receiver to reassemble a response split across
// more than one fragment; see DESIGN.md.
func encodeFsResponseFragment(deviceID uint16, op FsOp, status Status, chunk []byte) []byte {
	buf := make([]byte, fsResponseHeaderSize+len(chunk))
	putCommon(buf, ModeFs, deviceID)
	buf[3] = byte(op)
	buf[4] = byte(status)
	byteOrder.PutUint32(buf[5:9], uint32(len(chunk)))
	copy(buf[fsResponseHeaderSize:], chunk)
	return buf
}

func encodeOnlineOffline(mode Mode, deviceID uint16) []byte {
	buf := make([]byte, commonHeaderSize)
	putCommon(buf, mode, deviceID)
	return buf
}

// fragmentCount returns the number of fragments needed to carry dataLen
// bytes of payload given a per-fragment capacity, per spec §4.4's
// producer formula: ceil(dataLen/perFrag), minimum 1.
func fragmentCount(dataLen, perFrag int) int {
	if perFrag <= 0 {
		return 1
	}
	n := (dataLen + perFrag - 1) / perFrag
	if n < 1 {
		n = 1
	}
	return n
}

// fragmentSlice returns the [offset, offset+size) slice of data carried
// by fragment index f of total, given perFrag capacity.
func fragmentSlice(data []byte, f, perFrag int) []byte {
	off := f * perFrag
	if off > len(data) {
		off = len(data)
	}
	end := off + perFrag
	if end > len(data) {
		end = len(data)
	}
	return data[off:end]
}
