package engine

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeUpdateHook struct {
	status Status
	called bool
	gotOp  UpdateOp
	gotSeq uint32
}

func (h *fakeUpdateHook) Update(op UpdateOp, seq uint32, data []byte) Status {
	h.called, h.gotOp, h.gotSeq = true, op, seq
	return h.status
}

func TestUpdateCRCGateRejectsBadChecksum(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	hook := &fakeUpdateHook{status: StatusOk}
	e.SetUpdateHook(hook)

	data := []byte("firmware-chunk")
	badFrame := encodeUpdateRequestFrame(HashID("D"), UpdateOpData, 1, 0xFFFFFFFF, data)
	require.NoError(t, e.Rx("D", "S", badFrame))

	require.False(t, hook.called, "hook must never be invoked when CRC mismatches")

	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	resp, ok := decodeUpdateResponseForTest(frame)
	require.True(t, ok)
	require.Equal(t, StatusUpdateFailed, resp.status)
}

func TestUpdateCRCGateAcceptsGoodChecksum(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	hook := &fakeUpdateHook{status: StatusOk}
	e.SetUpdateHook(hook)

	data := []byte("firmware-chunk")
	crc := crc32.ChecksumIEEE(data)
	goodFrame := encodeUpdateRequestFrame(HashID("D"), UpdateOpData, 2, crc, data)
	require.NoError(t, e.Rx("D", "S", goodFrame))

	require.True(t, hook.called)
	require.Equal(t, UpdateOpData, hook.gotOp)
	require.EqualValues(t, 2, hook.gotSeq)

	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	resp, ok := decodeUpdateResponseForTest(frame)
	require.True(t, ok)
	require.Equal(t, StatusOk, resp.status)
}

func TestUpdateNoHookFails(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	require.NoError(t, e.UpdateRequest("D", "S", UpdateOpStart, 0, nil))
	require.NoError(t, e.Rx("D", "S", mustDequeueAndReplay(t, e)))

	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	resp, ok := decodeUpdateResponseForTest(frame)
	require.True(t, ok)
	require.Equal(t, StatusUpdateFailed, resp.status)
}

func TestUpdateUnknownOpRejectedWithoutInvokingHook(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	hook := &fakeUpdateHook{status: StatusOk}
	e.SetUpdateHook(hook)

	badOpFrame := encodeUpdateRequestFrame(HashID("D"), UpdateOp(99), 3, 0, nil)
	require.NoError(t, e.Rx("D", "S", badOpFrame))

	require.False(t, hook.called, "hook must never be invoked for an unrecognized update_op")

	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	resp, ok := decodeUpdateResponseForTest(frame)
	require.True(t, ok)
	require.Equal(t, StatusUpdateFailed, resp.status)
}

// mustDequeueAndReplay pops the one outbound frame UpdateRequest just
// queued (simulating the peer receiving it and looping it back) so the
// inbound handleUpdate path runs against a well-formed request.
func mustDequeueAndReplay(t *testing.T, e *Engine) []byte {
	t.Helper()
	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	return frame
}

type updateResponseMessage struct {
	op     UpdateOp
	status Status
	crc    uint32
	seq    uint32
}

func decodeUpdateResponseForTest(buf []byte) (updateResponseMessage, bool) {
	if len(buf) < updateRespHeaderSize {
		return updateResponseMessage{}, false
	}
	return updateResponseMessage{
		op:     UpdateOp(buf[3]),
		status: Status(buf[4]),
		crc:    byteOrder.Uint32(buf[5:9]),
		seq:    byteOrder.Uint32(buf[9:13]),
	}, true
}
