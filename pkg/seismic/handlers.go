package seismic

// Handlers are optional progress/event callbacks a caller may install on a
// DownloadHelper run, following the teacher's pkg/warplib.Handlers idiom:
// typed func fields, all optional, defaulted to no-ops by setDefaults so
// call sites never need a nil check.
type (
	ProviderStartHandlerFunc    func(provider string)
	ProviderDoneHandlerFunc     func(provider string, stationCount int)
	StationDiscardedHandlerFunc func(provider string, id StationID, reason string)
	ChunkCompleteHandlerFunc    func(provider string, chunkIndex, chunkCount int)
	QCResultHandlerFunc         func(provider string, downloadedBytes, discardedBytes int64)
)

type Handlers struct {
	ProviderStart    ProviderStartHandlerFunc
	ProviderDone     ProviderDoneHandlerFunc
	StationDiscarded StationDiscardedHandlerFunc
	ChunkComplete    ChunkCompleteHandlerFunc
	QCResult         QCResultHandlerFunc
}

func (h *Handlers) setDefaults() {
	if h.ProviderStart == nil {
		h.ProviderStart = func(string) {}
	}
	if h.ProviderDone == nil {
		h.ProviderDone = func(string, int) {}
	}
	if h.StationDiscarded == nil {
		h.StationDiscarded = func(string, StationID, string) {}
	}
	if h.ChunkComplete == nil {
		h.ChunkComplete = func(string, int, int) {}
	}
	if h.QCResult == nil {
		h.QCResult = func(string, int64, int64) {}
	}
}
