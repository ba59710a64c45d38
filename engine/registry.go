package engine

import (
	"github.com/jondurrant/tst-telemetry/internal/fifo"
	"github.com/jondurrant/tst-telemetry/internal/hashmap"
	"github.com/jondurrant/tst-telemetry/pkg"
)

// monitorQueueCap bounds the Tx queue for Monitor frames (spec §4.7):
// the oldest queued frame is dropped once the queue already holds this
// many. This implementation applies the cap regardless of online
// state (see SPEC_FULL.md §9 "monitor_send cap while online"), not only
// while offline.
const monitorQueueCap = 20

// reassemblyState tracks the in-flight inbound VariableSet reassembly
// for one interface. Fragmentation/reassembly is only ever applied to
// VariableSet on the inbound side (spec §4.4).
type reassemblyState struct {
	active         bool
	structID       uint16
	structOffset   uint16
	variableSize   uint16
	expected       uint8
	nextFragment   uint8
	buf            []byte
	filled         int
}

func (r *reassemblyState) reset() {
	*r = reassemblyState{}
}

// structRecord is a named, contiguous byte region the engine can read
// and write by (structID, offset, length). The backing slice is
// borrowed from the host for the engine's lifetime (spec §3's "handle"
// redesign of the original's raw base pointer).
type structRecord struct {
	name   string
	id     uint16
	region []byte
}

// interfaceRecord is one named transport channel on a device: its
// frame-size cap, its Rx/Tx queues, online/offline gate, and any
// in-flight reassembly.
type interfaceRecord struct {
	name       string
	deviceName string
	id         uint16
	maxPayload uint32
	rx         fifo.Queue
	tx         fifo.Queue
	online     bool
	reassembly reassemblyState
}

// deviceRecord is a registered endpoint: its interfaces and structures,
// each keyed by the 16-bit hash of its name.
type deviceRecord struct {
	name       string
	id         uint16
	interfaces *hashmap.Map[*interfaceRecord]
	structs    *hashmap.Map[*structRecord]
}

// InterfaceConfig describes one interface to register on a device.
type InterfaceConfig struct {
	Name       string
	MaxPayload uint32
}

// StructConfig describes one structure to register on a device. Region
// is borrowed by the engine for its lifetime: the host must not resize
// or relocate the backing array while the engine holds it.
type StructConfig struct {
	Name   string
	Region []byte
}

// DeviceConfig describes a device to register: its name and the
// interfaces and structures it exposes. Names must be unique within
// their scope (device names globally, interface/struct names per
// device).
type DeviceConfig struct {
	Name       string
	Interfaces []InterfaceConfig
	Structs    []StructConfig
}

// Init registers a device, its interfaces, and its structures. It
// fails closed on any duplicate name — device, interface, or struct —
// without mutating the registry (spec §8 "idempotent registration").
func (e *Engine) Init(cfg DeviceConfig) error {
	if cfg.Name == "" {
		return StatusInvalidParameter
	}

	deviceID := HashID(cfg.Name)
	if _, exists := e.devices.Get(uint32(deviceID)); exists {
		return StatusStructAlreadyPresent
	}

	interfaces := hashmap.New[*interfaceRecord](4)
	seenIface := make(map[uint16]struct{}, len(cfg.Interfaces))
	for _, ic := range cfg.Interfaces {
		if ic.Name == "" || ic.MaxPayload == 0 {
			return StatusInvalidParameter
		}
		id := HashID(ic.Name)
		if _, dup := seenIface[id]; dup {
			return StatusStructAlreadyPresent
		}
		seenIface[id] = struct{}{}
		interfaces.Insert(uint32(id), &interfaceRecord{
			name:       ic.Name,
			deviceName: cfg.Name,
			id:         id,
			maxPayload: ic.MaxPayload,
		})
	}

	structs := hashmap.New[*structRecord](4)
	seenStruct := make(map[uint16]struct{}, len(cfg.Structs))
	for _, sc := range cfg.Structs {
		if sc.Name == "" {
			return StatusInvalidParameter
		}
		id := HashID(sc.Name)
		if _, dup := seenStruct[id]; dup {
			return StatusStructAlreadyPresent
		}
		seenStruct[id] = struct{}{}
		structs.Insert(uint32(id), &structRecord{
			name:   sc.Name,
			id:     id,
			region: sc.Region,
		})
	}

	e.devices.Insert(uint32(deviceID), &deviceRecord{
		name:       cfg.Name,
		id:         deviceID,
		interfaces: interfaces,
		structs:    structs,
	})

	pkg.LogInfo(pkg.ComponentRegistry, "device registered",
		"device", cfg.Name,
		"interfaces", len(cfg.Interfaces),
		"structs", len(cfg.Structs))

	return nil
}

func (e *Engine) device(name string) (*deviceRecord, bool) {
	v, ok := e.devices.Get(uint32(HashID(name)))
	return v, ok
}

func (e *Engine) iface(dev *deviceRecord, name string) (*interfaceRecord, bool) {
	v, ok := dev.interfaces.Get(uint32(HashID(name)))
	return v, ok
}

func (e *Engine) structRecord(dev *deviceRecord, name string) (*structRecord, bool) {
	v, ok := dev.structs.Get(uint32(HashID(name)))
	return v, ok
}

// DeviceNames returns the names of every registered device, for
// diagnostics.
func (e *Engine) DeviceNames() []string {
	names := make([]string, 0, e.devices.Len())
	e.devices.Each(func(_ uint32, d *deviceRecord) bool {
		names = append(names, d.name)
		return true
	})
	return names
}

// InterfaceNames returns the names of every interface registered on
// deviceName, for diagnostics.
func (e *Engine) InterfaceNames(deviceName string) ([]string, error) {
	dev, ok := e.device(deviceName)
	if !ok {
		return nil, StatusNotFound
	}
	names := make([]string, 0, dev.interfaces.Len())
	dev.interfaces.Each(func(_ uint32, i *interfaceRecord) bool {
		names = append(names, i.name)
		return true
	})
	return names, nil
}

// StructNames returns the names of every structure registered on
// deviceName, for diagnostics.
func (e *Engine) StructNames(deviceName string) ([]string, error) {
	dev, ok := e.device(deviceName)
	if !ok {
		return nil, StatusNotFound
	}
	names := make([]string, 0, dev.structs.Len())
	dev.structs.Each(func(_ uint32, s *structRecord) bool {
		names = append(names, s.name)
		return true
	})
	return names, nil
}
