package capture

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes one capture device.
type DeviceInfo struct {
	ID        string
	Name      string
	IsDefault bool
}

// Devices enumerates the available capture devices.
func (c *Capture) Devices() ([]DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devicesLocked()
}

func (c *Capture) devicesLocked() ([]DeviceInfo, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture: enumerate devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// findDeviceLocked resolves a device id to its backend descriptor.
func (c *Capture) findDeviceLocked(id string) (malgo.DeviceInfo, error) {
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("capture: enumerate devices: %w", err)
	}
	for _, info := range infos {
		if info.ID.String() == id || info.Name() == id {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("capture: device %q not found", id)
}
