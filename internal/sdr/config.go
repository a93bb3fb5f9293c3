package sdr

import (
	"fmt"
	"strconv"

	"gopkg.in/ini.v1"
)

// Device types named by the config file section.
const (
	TypeRTLSDR = "rtlsdr"
	TypeAirspy = "airspy"
)

// DeviceConfig is the parsed device INI: the section name picks the driver,
// the keys configure it. Unknown keys are passed through and ignored by the
// driver; invalid values fail the individual setting, never the run.
type DeviceConfig struct {
	Type     string
	Settings map[string]string
}

// Serial returns the serial key parsed as a number, 0 when absent or
// malformed (0 selects the first device).
func (c *DeviceConfig) Serial() uint64 {
	s, ok := c.Settings["serial"]
	if !ok {
		return 0
	}
	serial, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0
	}
	return serial
}

// LoadDeviceConfig reads a device INI file. Exactly one of the known device
// sections must be present.
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load device config %s: %w", path, err)
	}

	for _, typ := range []string{TypeRTLSDR, TypeAirspy} {
		sec, err := f.GetSection(typ)
		if err != nil {
			continue
		}
		return &DeviceConfig{
			Type:     typ,
			Settings: sec.KeysHash(),
		}, nil
	}
	return nil, fmt.Errorf("device config %s names no supported device ([rtlsdr] or [airspy])", path)
}
