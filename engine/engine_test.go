package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, maxPayload uint32, structSize int) *Engine {
	t.Helper()
	e := New()
	cfg := DeviceConfig{
		Name: "D",
		Interfaces: []InterfaceConfig{
			{Name: "S", MaxPayload: maxPayload},
		},
		Structs: []StructConfig{
			{Name: "V", Region: make([]byte, structSize)},
		},
	}
	require.NoError(t, e.Init(cfg))
	return e
}

// TestSingleFragmentRoundTrip is scenario 1: a 4-byte struct, a single
// VariableSet announcement looped back over the wire, ends with the
// region holding the new value.
func TestSingleFragmentRoundTrip(t *testing.T) {
	e := newTestEngine(t, 100, 4)

	require.NoError(t, e.VariablesSet("D", "S", "V", 0, []byte{0xDE, 0xAD, 0xBE, 0xEF}))

	frame, err := e.Tx("D", "S")
	require.ErrorIs(t, err, StatusGeneralFail, "Tx before Online must fail")
	require.Nil(t, frame)

	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))
	frame, err = e.Tx("D", "S")
	require.NoError(t, err)

	require.NoError(t, e.Rx("D", "S", frame))

	dev, _ := e.device("D")
	sr, ok := e.structRecord(dev, "V")
	require.True(t, ok)
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, sr.region)
}

// TestMultiFragmentSet is scenario 2: a 200-byte struct with
// max_payload=50 forces fragmentation; fragments replayed in order
// reconstruct the value, replayed out of order leave it untouched.
func TestMultiFragmentSet(t *testing.T) {
	e := newTestEngine(t, 50, 200)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	pattern := make([]byte, 200)
	for i := range pattern {
		pattern[i] = byte(i % 256)
	}
	require.NoError(t, e.VariablesSet("D", "S", "V", 0, pattern))

	perFrag := 50 - dataHeaderSize
	wantFrames := (200 + perFrag - 1) / perFrag

	var frames [][]byte
	for {
		f, err := e.Tx("D", "S")
		if err != nil {
			break
		}
		frames = append(frames, f)
	}
	require.Len(t, frames, wantFrames)

	for i, f := range frames {
		m, ok := decodeDataMessage(f)
		require.True(t, ok)
		require.EqualValues(t, wantFrames, m.totalFragments)
		require.EqualValues(t, i, m.fragmentNumber)
	}

	// Feed back in order: region ends up matching the pattern.
	for _, f := range frames {
		require.NoError(t, e.Rx("D", "S", f))
	}
	dev, _ := e.device("D")
	sr, _ := e.structRecord(dev, "V")
	require.Equal(t, pattern, sr.region)

	// Re-fragment and feed back out of order: region must be unchanged.
	require.NoError(t, e.VariablesSet("D", "S", "V", 0, pattern))
	var frames2 [][]byte
	for {
		f, err := e.Tx("D", "S")
		if err != nil {
			break
		}
		frames2 = append(frames2, f)
	}
	require.True(t, len(frames2) > 1)

	before := append([]byte(nil), sr.region...)
	require.NoError(t, e.Rx("D", "S", frames2[len(frames2)-1])) // last fragment first: out of sequence
	require.Equal(t, before, sr.region, "out-of-sequence fragment must not mutate the region")
}

// TestGetSetHandshake is scenario 3: an inbound VariableGet produces
// exactly one outbound VariableSet carrying the current value.
func TestGetSetHandshake(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	dev, _ := e.device("D")
	sr, _ := e.structRecord(dev, "V")
	copy(sr.region, []byte{1, 2, 3, 4})

	reqBuf := make([]byte, dataHeaderSize)
	encodeDataHeader(reqBuf, ModeVariableGet, dataMessage{
		deviceID:       HashID("D"),
		totalFragments: 1,
		fragmentNumber: 0,
		structID:       HashID("V"),
		structOffset:   0,
		variableSize:   4,
	})
	require.NoError(t, e.Rx("D", "S", reqBuf))

	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	m, ok := decodeDataMessage(frame)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, m.data)

	_, err = e.Tx("D", "S")
	require.ErrorIs(t, err, StatusNotFound, "exactly one response frame expected")
}

// TestOfflineGating is scenario 4: frames queued while offline never
// drain until an Online control frame arrives, then drain FIFO.
func TestOfflineGating(t *testing.T) {
	e := newTestEngine(t, 100, 4)

	require.NoError(t, e.MonitorSend("D", "S", "m1"))
	require.NoError(t, e.MonitorSend("D", "S", "m2"))
	require.NoError(t, e.MonitorSend("D", "S", "m3"))
	require.NoError(t, e.VariablesSet("D", "S", "V", 0, []byte{1, 2, 3, 4}))

	_, err := e.Tx("D", "S")
	require.ErrorIs(t, err, StatusGeneralFail)

	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))

	for i := 0; i < 4; i++ {
		_, err := e.Tx("D", "S")
		require.NoError(t, err, "frame %d should drain", i)
	}
	_, err = e.Tx("D", "S")
	require.ErrorIs(t, err, StatusNotFound, "fifth Tx should find the queue empty")
}

// TestMonitorBound is scenario 5: 30 monitor_send calls while offline
// leave exactly 20 queued, the oldest 10 dropped.
func TestMonitorBound(t *testing.T) {
	e := newTestEngine(t, 100, 4)
	for i := 0; i < 30; i++ {
		require.NoError(t, e.MonitorSend("D", "S", "m_"+strconv.Itoa(i)))
	}

	dev, _ := e.device("D")
	ifc, _ := e.iface(dev, "S")
	require.Equal(t, 20, ifc.tx.Len())

	require.NoError(t, e.Rx("D", "S", encodeOnlineOffline(ModeOnline, HashID("D"))))
	frame, err := e.Tx("D", "S")
	require.NoError(t, err)
	m, ok := decodeMonitorMessage(frame)
	require.True(t, ok)
	require.Equal(t, "m_10", string(m.text))
}
