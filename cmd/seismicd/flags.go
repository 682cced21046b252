package main

import "github.com/urfave/cli"

var (
	network        string
	station        string
	location       string
	channel        string
	startTime      string
	endTime        string
	chunkLength    string
	minLength      float64
	minDistanceM   float64
	rejectGaps     bool
	providers      cli.StringSlice
	outputDir      string
	chunkSizeMB    float64
	threadsPerProv int
	metaThreads    int
)

var runFlags = []cli.Flag{
	cli.StringFlag{Name: "network, n", Usage: "network code filter (glob allowed)", Destination: &network},
	cli.StringFlag{Name: "station", Usage: "station code filter (glob allowed)", Destination: &station},
	cli.StringFlag{Name: "location", Usage: "location code filter (glob allowed)", Destination: &location},
	cli.StringFlag{Name: "channel, c", Usage: "channel code filter (glob allowed)", Destination: &channel},
	cli.StringFlag{Name: "start", Usage: "RFC3339 start time", Destination: &startTime},
	cli.StringFlag{Name: "end", Usage: "RFC3339 end time", Destination: &endTime},
	cli.StringFlag{Name: "chunk-length", Usage: "per-interval chunk length (Go duration, e.g. 24h); empty means one interval covers the whole window", Destination: &chunkLength},
	cli.Float64Flag{Name: "minimum-length", Usage: "minimum fraction of an interval's duration that must be covered by data", Value: 0.9, Destination: &minLength},
	cli.Float64Flag{Name: "minimum-interstation-distance", Usage: "minimum distance in meters between accepted stations", Value: 1000, Destination: &minDistanceM},
	cli.BoolTFlag{Name: "reject-gaps", Usage: "reject waveform files containing more than one trace (default: true)", Destination: &rejectGaps},
	cli.StringSliceFlag{Name: "provider, p", Usage: "provider name, repeatable; defaults to IRIS, ORFEUS, then alphabetical", Value: &providers},
	cli.StringFlag{Name: "output-dir, o", Usage: "root directory waveform/metadata files are written under", Value: ".", Destination: &outputDir},
	cli.Float64Flag{Name: "chunk-size-mb", Usage: "approximate size of each waveform download batch", Value: 50, Destination: &chunkSizeMB},
	cli.IntFlag{Name: "threads", Usage: "max concurrent waveform requests per provider", Value: 4, Destination: &threadsPerProv},
	cli.IntFlag{Name: "metadata-threads", Usage: "max concurrent metadata requests per provider", Value: 4, Destination: &metaThreads},
}

// serveFlags extends runFlags: the control plane launches Download for
// control-plane- or scheduler-named runs using the same restrictions and
// storage layout an interactive `seismicd run` would, so it accepts the
// same filter/output flags plus its own listen/secret/history-db trio.
var serveFlags = append(append([]cli.Flag{}, runFlags...),
	cli.StringFlag{Name: "listen", Usage: "address to bind the control plane to", Value: "127.0.0.1:8737"},
	cli.StringFlag{Name: "secret", Usage: "bearer token required on every control-plane request", EnvVar: "SEISMICD_SECRET"},
	cli.StringFlag{Name: "history-db", Usage: "path to the sqlite run-history database", Value: "seismicd-history.db"},
)

var historyFlags = []cli.Flag{
	cli.IntFlag{Name: "limit", Usage: "maximum number of runs to list, newest first", Value: 20},
	cli.StringFlag{Name: "history-db", Usage: "path to the sqlite run-history database", Value: "seismicd-history.db"},
}

var credsFlags = []cli.Flag{
	cli.StringFlag{Name: "username, u", Usage: "FDSN basic-auth username (for `creds set`)"},
	cli.StringFlag{Name: "password", Usage: "FDSN basic-auth password (for `creds set`)"},
}
