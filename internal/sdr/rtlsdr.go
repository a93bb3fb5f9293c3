package sdr

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	rtl "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"
)

// centerFrequency is where Mode S lives. The frequency config key can move
// it for offset-tuned frontends.
const centerFrequency = 1090000000

// RTLSDR streams unsigned 8-bit I/Q from a Realtek dongle into the sink.
type RTLSDR struct {
	dev        *rtl.Context
	log        *logrus.Logger
	sink       SampleSink
	sampleRate int
	running    atomic.Bool
}

// NewRTLSDR creates an unopened driver.
func NewRTLSDR(sampleRate int, sink SampleSink, log *logrus.Logger) *RTLSDR {
	return &RTLSDR{
		log:        log,
		sink:       sink,
		sampleRate: sampleRate,
	}
}

// Open claims a dongle, matching the USB serial string when serial is
// non-zero, and applies the fixed tuning.
func (r *RTLSDR) Open(serial uint64) error {
	count := rtl.GetDeviceCount()
	if count == 0 {
		return errors.New("no RTL-SDR devices found")
	}

	index := 0
	if serial != 0 {
		for i := 0; i < count; i++ {
			_, _, devSerial, err := rtl.GetDeviceUsbStrings(i)
			if err != nil {
				continue
			}
			if s, err := strconv.ParseUint(devSerial, 0, 64); err == nil && s == serial {
				index = i
				break
			}
		}
	}

	dev, err := rtl.Open(index)
	if err != nil {
		return fmt.Errorf("failed to open device %d: %w", index, err)
	}
	r.dev = dev

	if err := r.dev.SetSampleRate(r.sampleRate); err != nil {
		r.dev.Close()
		r.dev = nil
		return fmt.Errorf("failed to set sample rate: %w", err)
	}
	r.dev.SetCenterFreq(centerFrequency)
	r.dev.SetTunerGainMode(false)
	r.dev.ResetBuffer()

	r.log.WithFields(logrus.Fields{
		"device_index": index,
		"sample_rate":  r.sampleRate,
	}).Info("RTL-SDR device opened")
	return nil
}

// ApplySetting maps one config key onto the tuner. Unknown keys and values
// that do not parse return false.
func (r *RTLSDR) ApplySetting(key, value string) bool {
	if r.dev == nil {
		return false
	}
	switch key {
	case "frequency":
		hz, err := strconv.Atoi(value)
		return err == nil && r.dev.SetCenterFreq(hz) == nil
	case "gain":
		tenthDB, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		if r.dev.SetTunerGainMode(true) != nil {
			return false
		}
		return r.dev.SetTunerGain(r.nearestGain(int(tenthDB*10))) == nil
	case "agc":
		on, err := strconv.ParseBool(value)
		return err == nil && r.dev.SetAgcMode(on) == nil
	case "ppm":
		ppm, err := strconv.Atoi(value)
		return err == nil && r.dev.SetFreqCorrection(ppm) == nil
	case "offset_tuning":
		on, err := strconv.ParseBool(value)
		return err == nil && r.dev.SetOffsetTuning(on) == nil
	case "direct_sampling":
		mode, err := strconv.Atoi(value)
		return err == nil && r.dev.SetDirectSampling(mode) == nil
	case "tuner_bandwidth":
		bw, err := strconv.Atoi(value)
		return err == nil && r.dev.SetTunerBw(bw) == nil
	}
	return false
}

// nearestGain snaps a requested gain (tenths of dB) to the closest value the
// tuner supports.
func (r *RTLSDR) nearestGain(requested int) int {
	gains, err := r.dev.GetTunerGains()
	if err != nil || len(gains) == 0 {
		return requested
	}
	best := gains[0]
	for _, g := range gains[1:] {
		if abs(requested-g) < abs(requested-best) {
			best = g
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Start launches the async read loop. The librtlsdr callback thread writes
// straight into the sink; when the read loop dies for any reason the sink
// is shut down so the consumer drains and exits.
func (r *RTLSDR) Start() error {
	if r.dev == nil {
		return errors.New("device not open")
	}
	r.running.Store(true)

	go func() {
		err := r.dev.ReadAsync(func(data []byte) {
			r.sink.Write(data)
		}, nil, 0, 0)
		if err != nil && r.running.Load() {
			r.log.WithError(err).Error("RTL-SDR async read failed")
		}
		r.sink.Shutdown()
	}()
	return nil
}

// Stop cancels the async read; the read goroutine shuts the sink down.
func (r *RTLSDR) Stop() {
	if r.dev == nil || !r.running.Swap(false) {
		return
	}
	if err := r.dev.CancelAsync(); err != nil {
		r.log.WithError(err).Debug("Failed to cancel async read")
	}
}

// Close releases the dongle.
func (r *RTLSDR) Close() {
	if r.dev == nil {
		return
	}
	r.dev.Close()
	r.dev = nil
	r.log.Info("RTL-SDR device closed")
}
