package dsp

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mgrone/stream1090/internal/rate"
)

// MaxTaps bounds runtime-loaded filter lengths.
const MaxTaps = 64

// Built-in low-pass taps per input rate, tuned against recorded captures.
// 31 symmetric taps each.
var builtinTaps = map[int][]float32{
	rate.Rate6_0MHz: {
		0.04691808, -0.02944228, 0.02481813, 0.00687245, -0.03778376, -0.05536104,
		-0.03637546, -0.06929483, 0.04111258, -0.0142561, -0.05956734, -0.00396889,
		-0.04647978, -0.06260861, 0.38121662, 0.8284003, 0.38121662, -0.06260861,
		-0.04647978, -0.00396889, -0.05956734, -0.0142561, 0.04111258, -0.06929483,
		-0.03637546, -0.05536104, -0.03778376, 0.00687245, 0.02481813, -0.02944228,
		0.04691808,
	},
	rate.Rate10_0MHz: {
		0.00055077, -0.01847956, 0.00234699, -0.01789507, 0.00318175, 0.05594195,
		0.01237755, -0.06771679, 0.05199363, -0.02546499, 0.16795284, -0.07870515,
		-0.16818146, 0.2712337, 0.2018848, 0.21795812, 0.2018848, 0.2712337,
		-0.16818146, -0.07870515, 0.16795284, -0.02546499, 0.05199363, -0.06771679,
		0.01237755, 0.05594195, 0.00318175, -0.01789507, 0.00234699, -0.01847956,
		0.00055077,
	},
}

// BuiltinTaps returns the built-in filter for an input rate.
func BuiltinTaps(inputRate int) ([]float32, error) {
	taps, ok := builtinTaps[inputRate]
	if !ok {
		return nil, fmt.Errorf("no built-in filter taps for input rate %.1f MHz", float64(inputRate)/1e6)
	}
	out := make([]float32, len(taps))
	copy(out, taps)
	return out, nil
}

// LoadTaps reads a taps file: one float per line, '#' starts a comment,
// at most MaxTaps entries. An empty result or a malformed line is an error;
// a bad filter is a startup failure, not something to limp along with.
func LoadTaps(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open taps file: %w", err)
	}
	defer f.Close()

	var taps []float32
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed tap %q in %s", line, path)
		}
		taps = append(taps, float32(v))
		if len(taps) > MaxTaps {
			return nil, fmt.Errorf("too many taps in %s (max %d)", path, MaxTaps)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read taps file: %w", err)
	}
	if len(taps) == 0 {
		return nil, fmt.Errorf("no taps in %s", path)
	}
	return taps, nil
}
