// Package devices tracks the input devices known to the fusion engine:
// their identity, capabilities and applied configuration. Physical
// device drivers live outside this service; the catalogue records what
// the ingest side reports.
package devices

import (
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/cockpit.fusion/internal/telemetry"
)

// Device describes one known input device.
type Device struct {
	DeviceID           string
	DeviceType         telemetry.DeviceType
	Model              string
	SerialNumber       string
	FirmwareVersion    string
	SupportedDataTypes []telemetry.DataType
	Capabilities       map[string]string
	IsConnected        bool
	ConnectionInfo     string

	// Settings holds the parameters applied via Configure.
	Settings map[string]string
}

func (d Device) supports(t telemetry.DataType) bool {
	for _, s := range d.SupportedDataTypes {
		if s == t {
			return true
		}
	}
	return false
}

func (d Device) clone() Device {
	out := d
	out.SupportedDataTypes = append([]telemetry.DataType(nil), d.SupportedDataTypes...)
	out.Capabilities = cloneStringMap(d.Capabilities)
	out.Settings = cloneStringMap(d.Settings)
	return out
}

// Catalogue is a thread-safe device registry.
type Catalogue struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewCatalogue seeds a catalogue with the given devices. Later entries
// with a duplicate ID overwrite earlier ones.
func NewCatalogue(seed []Device) *Catalogue {
	c := &Catalogue{devices: make(map[string]*Device, len(seed))}
	for i := range seed {
		d := seed[i].clone()
		c.devices[d.DeviceID] = &d
	}
	return c
}

// Register adds or replaces a device record.
func (c *Catalogue) Register(d Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := d.clone()
	c.devices[cp.DeviceID] = &cp
}

// Get returns a copy of the device record.
func (c *Catalogue) Get(deviceID string) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[deviceID]
	if !ok {
		return Device{}, false
	}
	return d.clone(), true
}

// TypeOf reports the device type for an ID, DeviceTypeUnknown when the
// device is not in the catalogue.
func (c *Catalogue) TypeOf(deviceID string) telemetry.DeviceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.devices[deviceID]; ok {
		return d.DeviceType
	}
	return telemetry.DeviceTypeUnknown
}

// List returns devices matching any of the given types, sorted by ID.
// An empty type list returns everything.
func (c *Catalogue) List(types []telemetry.DeviceType) []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Device
	for _, d := range c.devices {
		if len(types) == 0 {
			out = append(out, d.clone())
			continue
		}
		for _, t := range types {
			if d.DeviceType == t {
				out = append(out, d.clone())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Configure applies parameters to a device and optionally narrows the
// data types it should emit. Requested types outside the device's
// supported set are rejected.
func (c *Catalogue) Configure(deviceID string, dataTypes []telemetry.DataType, params map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[deviceID]
	if !ok {
		return fmt.Errorf("unknown device %q", deviceID)
	}
	for _, t := range dataTypes {
		if !d.supports(t) {
			return fmt.Errorf("device %s does not support data type %q", deviceID, t)
		}
	}
	if d.Settings == nil {
		d.Settings = make(map[string]string, len(params))
	}
	for k, v := range params {
		d.Settings[k] = v
	}
	return nil
}

// SetConnected updates the connection state reported for a device.
func (c *Catalogue) SetConnected(deviceID string, connected bool, info string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[deviceID]
	if !ok {
		return false
	}
	d.IsConnected = connected
	d.ConnectionInfo = info
	return true
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
