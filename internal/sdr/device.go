package sdr

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SampleSink is the producer contract a device writes into, implemented by
// the ring buffer writer. Write may block on backpressure; Shutdown ends
// the stream after a device error or stop.
type SampleSink interface {
	Write(p []byte) (int, error)
	Shutdown()
}

// Device is an async raw sample source. Open and Start failing are fatal;
// ApplySetting failing is not.
type Device interface {
	// Open claims the hardware, selecting by USB serial when non-zero.
	Open(serial uint64) error
	// ApplySetting applies one config key. False means the key is unknown
	// or the value did not stick; the caller logs and moves on.
	ApplySetting(key, value string) bool
	// Start begins streaming into the sink.
	Start() error
	// Stop ends streaming and shuts the sink down.
	Stop()
	// Close releases the hardware.
	Close()
}

// NewDevice instantiates the driver for a config's device type.
func NewDevice(cfg *DeviceConfig, sampleRate int, sink SampleSink, log *logrus.Logger) (Device, error) {
	switch cfg.Type {
	case TypeRTLSDR:
		return NewRTLSDR(sampleRate, sink, log), nil
	case TypeAirspy:
		return nil, fmt.Errorf("airspy support is not built in; feed airspy_rx through stdin instead")
	}
	return nil, fmt.Errorf("unknown device type %q", cfg.Type)
}

// Setup opens the device and applies every config key except serial. Failed
// settings are logged and skipped.
func Setup(dev Device, cfg *DeviceConfig, log *logrus.Logger) error {
	if err := dev.Open(cfg.Serial()); err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	for key, value := range cfg.Settings {
		if key == "serial" {
			continue
		}
		if !dev.ApplySetting(key, value) {
			log.WithFields(logrus.Fields{
				"key":   key,
				"value": value,
			}).Debug("Device setting not applied")
		}
	}
	return nil
}
