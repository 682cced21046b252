package seismic

import "errors"

// Sentinel errors for conditions that don't need per-call context, matching
// the teacher's errors.go convention of exported `errors.New` vars.
var (
	// ErrInvalidConfiguration is returned by Restrictions.Validate when
	// endtime <= starttime or minimum_length is outside [0, 1].
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownCapabilityOverride names the error for a provider capability
	// override table entry whose mode is not null, matchtimeseries or
	// includeavailability. No function in this package returns it:
	// ResolveCapability does not validate override modes.
	ErrUnknownCapabilityOverride = errors.New("unknown provider capability override mode")

	// ErrMetadataDirectiveUnsupported is returned when a MetadataResolver
	// returns the reserved directive form, which this implementation does
	// not act on (spec.md §4.2: "implementations MAY error on the
	// directive form").
	ErrMetadataDirectiveUnsupported = errors.New("metadata storage directive form is not supported")

	// ErrNoProvidersAvailable names the error for a run in which every
	// configured provider failed to initialize. No function in this package
	// returns it: NewDownloadHelper reports each failed provider in its
	// *multierror.Error, and Download with no providers returns an empty
	// Report.
	ErrNoProvidersAvailable = errors.New("no providers could be initialized")
)

// ErrorKind is the error taxonomy from spec.md §7: kinds, not types. Most
// kinds never reach the caller as a returned error — they are recorded as
// interval/provider state and surfaced through the Report. Only
// KindInvalidConfiguration is returned synchronously from Download.
type ErrorKind int

const (
	KindProviderInitFailure ErrorKind = iota
	KindProviderRPCError
	KindEmptyResponse
	KindStoragePermissionError
	KindQCReject
	KindMetadataMissing
	KindInvalidConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindProviderInitFailure:
		return "provider_init_failure"
	case KindProviderRPCError:
		return "provider_rpc_error"
	case KindEmptyResponse:
		return "empty_response"
	case KindStoragePermissionError:
		return "storage_permission_error"
	case KindQCReject:
		return "qc_reject"
	case KindMetadataMissing:
		return "metadata_missing"
	case KindInvalidConfiguration:
		return "invalid_configuration"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a taxonomy Kind and the provider it
// occurred against, letting callers inspect *Error via errors.As without
// type-switching on a large sentinel set.
type Error struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + " [" + e.Provider + "]: " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error for the given kind/provider/cause.
func newError(kind ErrorKind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}
