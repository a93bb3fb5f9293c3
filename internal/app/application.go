package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mgrone/stream1090/internal/demod"
	"github.com/mgrone/stream1090/internal/dsp"
	"github.com/mgrone/stream1090/internal/output"
	"github.com/mgrone/stream1090/internal/rate"
	"github.com/mgrone/stream1090/internal/sdr"
	"github.com/mgrone/stream1090/internal/stats"
	"github.com/mgrone/stream1090/internal/stream"
)

// ErrUnsupportedConfig marks a rate pair outside the supported table; main
// maps it to its own exit code.
var ErrUnsupportedConfig = errors.New("unsupported configuration")

// statsInterval paces the periodic counter report.
const statsInterval = 30 * time.Second

// ringBlocks is the block count of the device ring buffer. One block is one
// processing chunk of raw bytes.
const ringBlocks = 8

// Application owns every component of one demodulator run.
type Application struct {
	config Config
	logger *logrus.Logger

	rateCfg rate.Config
	format  rate.Format

	statsLog *stats.Log
	writer   *output.Writer
	core     *demod.Core
	sstream  *stream.SampleStream
	frontend *dsp.Frontend

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApplication creates an application instance.
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config:   config,
		logger:   logger,
		statsLog: stats.NewLog(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start resolves the configuration, wires the pipeline and runs until EOF
// or a signal.
func (app *Application) Start() error {
	if err := app.resolveRates(); err != nil {
		return err
	}
	if err := app.initializeComponents(); err != nil {
		return err
	}

	// SIGINT/SIGTERM request a cooperative stop at the next block boundary
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		app.logger.WithField("signal", sig.String()).Info("Shutdown requested")
		app.cancel()
	}()
	defer signal.Stop(sigChan)

	go app.reportStatistics()

	var err error
	if app.config.DeviceConfig == "" {
		err = app.runSyncStdin()
	} else {
		err = app.runAsyncDevice()
	}

	app.writer.Flush()
	app.logFinalStats()
	return err
}

// resolveRates parses -s/-u and looks the pair up in the supported table.
func (app *Application) resolveRates() error {
	inputRate, err := rate.ParseMHz(app.config.SampleRate)
	if err != nil {
		return err
	}

	outputRate := 0
	if app.config.WorkingRate != "" {
		outputRate, err = rate.ParseMHz(app.config.WorkingRate)
		if err != nil {
			return err
		}
	} else {
		outputRate, err = rate.DefaultOutputRate(inputRate)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)
		}
		app.logger.WithField("working_rate_mhz", outputRate/1000000).Debug("Auto-selected working rate")
	}

	cfg, err := rate.Lookup(inputRate, outputRate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedConfig, err)
	}
	app.rateCfg = cfg

	app.format = cfg.DefaultFormat
	if app.config.RawFormat != "" {
		app.format, err = rate.ParseFormat(app.config.RawFormat)
		if err != nil {
			return err
		}
	}
	return nil
}

// initializeComponents builds the front end, demod core and output writer.
func (app *Application) initializeComponents() error {
	pipe, err := app.buildPipeline()
	if err != nil {
		return err
	}
	app.frontend = dsp.NewFrontend(app.format, pipe)

	format := output.ASCII
	if app.config.BinaryOutput {
		format = output.Binary
	}
	app.writer = output.NewWriter(os.Stdout, format)

	opts := demod.DefaultOptions()
	opts.DF11TrustRewrite = !app.config.NoDF11Trust

	regs := demod.NewRightAligned(app.rateCfg.NumStreams)
	app.core = demod.NewCore(regs, app.rateCfg.NumStreams, demod.NewCache(), app.writer, app.statsLog, opts)

	app.sstream = stream.NewSampleStream(app.rateCfg, dsp.NewResampler(app.rateCfg), app.core, app.writer)

	app.logger.WithFields(logrus.Fields{
		"version":       Version,
		"input_rate":    app.rateCfg.InputRate,
		"working_rate":  app.rateCfg.OutputRate,
		"ratio":         fmt.Sprintf("%d:%d", app.rateCfg.P, app.rateCfg.Q),
		"streams":       app.rateCfg.NumStreams,
		"input_buffer":  app.rateCfg.InputBufferSize,
		"sample_buffer": app.rateCfg.SampleBufferSize,
		"raw_format":    app.format.String(),
		"pipeline":      pipe.String(),
	}).Info("Demodulator configured")
	return nil
}

// buildPipeline assembles the per-sample I/Q stages from the filter flags.
// The real-valued raw format always carries DC removal and the Fs/2 flip.
func (app *Application) buildPipeline() (*dsp.Pipeline, error) {
	var taps []float32
	var err error
	switch {
	case app.config.TapsFile != "":
		taps, err = dsp.LoadTaps(app.config.TapsFile)
		if err != nil {
			return nil, err
		}
		app.logger.WithField("taps", len(taps)).Debug("Loaded FIR taps from file")
	case app.config.BuiltinFIR:
		taps, err = dsp.BuiltinTaps(app.rateCfg.InputRate)
		if err != nil {
			return nil, err
		}
	}

	var fir *dsp.IQLowPass
	if taps != nil {
		fir = dsp.NewIQLowPass(taps)
	}

	if app.format == rate.IQUint16RealRaw {
		return dsp.NewPipeline(dsp.NewDCRemoval(dsp.DefaultDCAlpha), dsp.NewFlipSigns(), fir), nil
	}
	if fir != nil {
		return dsp.NewPipeline(dsp.NewDCRemoval(dsp.DefaultDCAlpha), dsp.NewFlipSigns(), fir), nil
	}
	return dsp.NewPipeline(nil, nil, nil), nil
}

// runSyncStdin is the single-threaded mode: read, demodulate, repeat.
func (app *Application) runSyncStdin() error {
	app.logger.Info("Reading from stdin")
	src := stream.NewStdinSource(app.ctx, os.Stdin, app.frontend,
		app.rateCfg.InputBufferSize, app.format.BytesPerMagnitude())
	app.sstream.Run(src)
	app.logger.Info("Finished")
	return nil
}

// runAsyncDevice drives the device-thread/demod-thread split: the device
// callback produces into the ring buffer, this thread consumes it.
func (app *Application) runAsyncDevice() error {
	devCfg, err := sdr.LoadDeviceConfig(app.config.DeviceConfig)
	if err != nil {
		return err
	}

	blockBytes := app.rateCfg.InputBufferSize * app.format.BytesPerMagnitude()
	ring, err := stream.NewRingBuffer(blockBytes, ringBlocks)
	if err != nil {
		return err
	}
	writer := stream.NewWriter(ring)

	device, err := sdr.NewDevice(devCfg, app.rateCfg.InputRate, writer, app.logger)
	if err != nil {
		return err
	}
	if err := sdr.Setup(device, devCfg, app.logger); err != nil {
		return err
	}
	defer device.Close()

	if err := device.Start(); err != nil {
		return fmt.Errorf("device refuses to start: %w", err)
	}
	app.logger.WithField("device", devCfg.Type).Info("Device is running")

	// a signal stops the device, which shuts the ring down and lets the
	// consumer drain
	go func() {
		<-app.ctx.Done()
		device.Stop()
	}()

	app.sstream.Run(stream.NewRingSource(ring, app.frontend))

	device.Stop()
	app.logger.Info("Device stopped")
	return nil
}

// reportStatistics logs the counter snapshot periodically.
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.logSnapshot(app.statsLog.Snapshot(), "Demodulator statistics")
		}
	}
}

func (app *Application) logFinalStats() {
	app.logSnapshot(app.statsLog.Snapshot(), "Final demodulator statistics")
}

func (app *Application) logSnapshot(s stats.Summary, msg string) {
	app.logger.WithFields(logrus.Fields{
		"stream_secs":   fmt.Sprintf("%.1f", s.ElapsedStreamSecs),
		"total_sent":    s.TotalSent,
		"total_dups":    s.TotalDups,
		"msgs_per_sec":  fmt.Sprintf("%.1f", s.MessagesPerSec),
		"adsb_sent":     s.ExtSquitterSent,
		"adsb_repaired": s.ExtSquitterRepaired,
		"commb_sent":    s.CommBSent,
		"acas_sent":     s.AcasSent,
		"surv_sent":     s.SurvSent,
		"df11_sent":     s.DF11Sent,
		"df11_repaired": s.DF11Repaired,
	}).Info(msg)
}

// Stop requests a cooperative shutdown; exposed for tests.
func (app *Application) Stop() {
	app.cancel()
}
