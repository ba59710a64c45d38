package engine

import (
	"bytes"
	"testing"
)

func TestDataHeaderRoundTrip(t *testing.T) {
	want := dataMessage{
		deviceID:       HashID("D"),
		totalFragments: 3,
		fragmentNumber: 1,
		structID:       HashID("V"),
		structOffset:   10,
		variableSize:   200,
		data:           []byte{1, 2, 3, 4},
	}
	buf := make([]byte, dataHeaderSize+len(want.data))
	encodeDataHeader(buf, ModeVariableSet, want)
	copy(buf[dataHeaderSize:], want.data)

	got, ok := decodeDataMessage(buf)
	if !ok {
		t.Fatal("decodeDataMessage() ok = false")
	}
	if got.deviceID != want.deviceID || got.totalFragments != want.totalFragments ||
		got.fragmentNumber != want.fragmentNumber || got.structID != want.structID ||
		got.structOffset != want.structOffset || got.variableSize != want.variableSize ||
		!bytes.Equal(got.data, want.data) {
		t.Errorf("decodeDataMessage() = %+v, want %+v", got, want)
	}
}

func TestDecodeDataMessageShortFrameFails(t *testing.T) {
	if _, ok := decodeDataMessage(make([]byte, dataHeaderSize-1)); ok {
		t.Error("decodeDataMessage() on short frame ok = true, want false")
	}
}

func TestMonitorFragmentRoundTrip(t *testing.T) {
	frame := encodeMonitorFragment(HashID("D"), 2, 1, 10, []byte("hello"))
	m, ok := decodeMonitorMessage(frame)
	if !ok {
		t.Fatal("decodeMonitorMessage() ok = false")
	}
	if m.totalFragments != 2 || m.fragmentNumber != 1 || m.msgLen != 10 || string(m.text) != "hello" {
		t.Errorf("decodeMonitorMessage() = %+v", m)
	}
}

func TestUpdateRequestRoundTrip(t *testing.T) {
	frame := encodeUpdateRequestFrame(HashID("D"), UpdateOpData, 7, 0xDEADBEEF, []byte{9, 9, 9})
	req, ok := decodeUpdateRequest(frame)
	if !ok {
		t.Fatal("decodeUpdateRequest() ok = false")
	}
	if req.op != UpdateOpData || req.seq != 7 || req.crc != 0xDEADBEEF || !bytes.Equal(req.data, []byte{9, 9, 9}) {
		t.Errorf("decodeUpdateRequest() = %+v", req)
	}
}

func TestFsRequestRoundTrip(t *testing.T) {
	buf := make([]byte, fsRequestHeaderSize+len("/a/b.txt")+3)
	putCommon(buf, ModeFs, HashID("D"))
	buf[3] = byte(FsOpUpload)
	byteOrder.PutUint16(buf[4:6], uint16(len("/a/b.txt")))
	byteOrder.PutUint32(buf[6:10], 16)
	byteOrder.PutUint32(buf[10:14], 3)
	copy(buf[fsRequestHeaderSize:], "/a/b.txt")
	copy(buf[fsRequestHeaderSize+len("/a/b.txt"):], []byte{1, 2, 3})

	req, ok := decodeFsRequest(buf)
	if !ok {
		t.Fatal("decodeFsRequest() ok = false")
	}
	if req.op != FsOpUpload || req.path != "/a/b.txt" || req.offset != 16 || !bytes.Equal(req.data, []byte{1, 2, 3}) {
		t.Errorf("decodeFsRequest() = %+v", req)
	}
}

func TestFragmentCountAndSlice(t *testing.T) {
	tests := []struct {
		dataLen, perFrag, want int
	}{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{200, 50, 4},
		{201, 50, 5},
	}
	for _, tt := range tests {
		if got := fragmentCount(tt.dataLen, tt.perFrag); got != tt.want {
			t.Errorf("fragmentCount(%d, %d) = %d, want %d", tt.dataLen, tt.perFrag, got, tt.want)
		}
	}

	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i % 256)
	}
	const perFrag = 50
	total := fragmentCount(len(data), perFrag)
	reassembled := make([]byte, 0, len(data))
	for f := 0; f < total; f++ {
		reassembled = append(reassembled, fragmentSlice(data, f, perFrag)...)
	}
	if !bytes.Equal(reassembled, data) {
		t.Error("fragmentSlice() sequence does not reassemble to the original data")
	}
}
