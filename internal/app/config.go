package app

// Config holds the command line surface. Rates arrive as MHz strings and
// are resolved against the supported pair table at startup.
type Config struct {
	SampleRate   string // -s, input rate in MHz (required)
	WorkingRate  string // -u, working rate in MHz (optional, defaulted per input rate)
	DeviceConfig string // -d, device INI file; empty means sync stdin mode
	TapsFile     string // -f, runtime FIR taps
	BuiltinFIR   bool   // -q, enable the built-in FIR taps
	RawFormat    string // --format, raw input format override (stdin mode)
	BinaryOutput bool   // --raw, 24-byte binary records instead of ASCII
	NoDF11Trust  bool   // --no-df11-trust, disable the trusted-sender DF11 parity rewrite
	Verbose      bool   // -v
	ShowVersion  bool   // --version
}
