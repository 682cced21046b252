package seismic

// bandSampleRates maps a channel's band code (first letter of the channel
// code) to a nominal sampling rate in Hz, used only to estimate on-disk
// waveform size for chunk packing. Values are the standard SEED band-code
// conventions, confirmed against the original implementation's
// `channel_sampling_rate` table in download_status.py.
var bandSampleRates = map[byte]float64{
	'F': 5000,
	'G': 5000,
	'D': 1000,
	'C': 1000,
	'E': 250,
	'S': 80,
	'H': 250,
	'B': 80,
	'M': 10,
	'L': 1,
	'V': 0.1,
	'U': 0.01,
	'R': 0.001,
	'P': 0.0001,
	'T': 0.00001,
	'Q': 0.000001,
	'A': 5000,
	'O': 5000,
}

// defaultBandSampleRate is used for band codes absent from the table.
const defaultBandSampleRate = 1.0

// BandSampleRate returns the nominal sampling rate in Hz for a band code.
func BandSampleRate(bandCode byte) float64 {
	if sr, ok := bandSampleRates[bandCode]; ok {
		return sr
	}
	return defaultBandSampleRate
}

// estimateBytes approximates the on-disk size of a MiniSEED interval:
// sample_rate * duration_seconds * 4 bytes/sample, reduced by a third for
// STEIM compression. Grounded verbatim on the original's comment and
// formula: "Assume that each sample needs 4 byte, STEIM compression
// reduces size to about a third."
func estimateBytes(bandCode byte, durationSeconds float64) float64 {
	sr := BandSampleRate(bandCode)
	return sr * durationSeconds * 4.0 / 3.0
}
