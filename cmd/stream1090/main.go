package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgrone/stream1090/internal/app"
	"github.com/mgrone/stream1090/internal/rate"
)

func ratePairHelp() string {
	s := "Supported sample rate combinations:\n"
	for _, c := range rate.Supported() {
		s += fmt.Sprintf("  %g -> %g (%s)\n",
			float64(c.InputRate)/1e6, float64(c.OutputRate)/1e6, c.DefaultFormat)
	}
	return s
}

func main() {
	var config app.Config

	rootCmd := &cobra.Command{
		Use:   "stream1090",
		Short: "Preamble-less Mode S / ADS-B demodulator",
		Long: `stream1090 demodulates Mode S messages from a 1090 MHz IQ sample stream
without searching for preambles: every demodulated bit runs through a set of
running CRC-24 shift registers, and each bit boundary is tested for a valid
56- or 112-bit message using the parity field plus a trusted-sender cache.

Reads raw samples from stdin, or directly from an RTL-SDR given a device
config file. Demodulated frames go to stdout, logs to stderr.

Example usage:
  rtl_sdr -g 0 -f 1090000000 -s 2400000 - | stream1090 -s 2.4 -u 8
  stream1090 -s 2.4 -u 8 -d configs/rtlsdr.ini
  airspy_rx -t 4 -g 20 -f 1090.000 -a 12000000 -r - | stream1090 -s 6 -u 12 -q

` + ratePairHelp(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}
			if config.SampleRate == "" {
				cmd.Usage()
				return errors.New("input sample rate (-s) is required")
			}
			return app.NewApplication(config).Start()
		},
	}

	rootCmd.Flags().StringVarP(&config.SampleRate, "sample-rate", "s", "", "Input sample rate in MHz (required)")
	rootCmd.Flags().StringVarP(&config.WorkingRate, "working-rate", "u", "", "Working/upsample rate in MHz")
	rootCmd.Flags().StringVarP(&config.DeviceConfig, "device-config", "d", "", "Device configuration INI file")
	rootCmd.Flags().StringVarP(&config.TapsFile, "taps-file", "f", "", "FIR taps file for the IQ low-pass filter")
	rootCmd.Flags().BoolVarP(&config.BuiltinFIR, "iq-filter", "q", false, "Enable the IQ FIR filter with built-in taps")
	rootCmd.Flags().StringVar(&config.RawFormat, "format", "", "Raw input format override (iq-uint8, iq-uint16, iq-float32, mag-float32, iq-uint16-real-raw)")
	rootCmd.Flags().BoolVar(&config.BinaryOutput, "raw", false, "Emit 24-byte binary records instead of ASCII lines")
	rootCmd.Flags().BoolVar(&config.NoDF11Trust, "no-df11-trust", false, "Disable the trusted-sender DF11 parity rewrite")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, app.ErrUnsupportedConfig) {
			os.Exit(-1)
		}
		os.Exit(1)
	}
}
