package internaldefs

import (
	goShelf "github.com/MrEthical07/goShelf"
)

// CounterDef names one goShelf counter for exporters.
type CounterDef struct {
	ID   goShelf.MetricID
	Name string
	Help string
}

// HistogramDef names one goShelf histogram for exporters.
type HistogramDef struct {
	ID   goShelf.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: goShelf.MetricLoginSuccess, Name: "goshelf_login_success_total", Help: "Logins that produced a session."},
	{ID: goShelf.MetricLoginInvalidCredentials, Name: "goshelf_login_invalid_credentials_total", Help: "Logins rejected for bad credentials."},
	{ID: goShelf.MetricLoginFailure, Name: "goshelf_login_failure_total", Help: "Logins that failed for other reasons."},
	{ID: goShelf.MetricLogout, Name: "goshelf_logout_total", Help: "Explicit logouts."},
	{ID: goShelf.MetricSessionExpired, Name: "goshelf_session_expired_total", Help: "Sessions purged after the API rejected the token."},
	{ID: goShelf.MetricSessionRestored, Name: "goshelf_session_restored_total", Help: "Sessions restored from the store at startup."},
	{ID: goShelf.MetricSessionCorrupt, Name: "goshelf_session_corrupt_total", Help: "Persisted sessions discarded as unreadable."},
	{ID: goShelf.MetricProfileUpdated, Name: "goshelf_profile_updated_total", Help: "Profile updates persisted."},
	{ID: goShelf.MetricRegisterSuccess, Name: "goshelf_register_success_total", Help: "Accepted registrations."},
	{ID: goShelf.MetricRegisterFailure, Name: "goshelf_register_failure_total", Help: "Rejected or failed registrations."},
	{ID: goShelf.MetricStoreFailure, Name: "goshelf_store_failure_total", Help: "Session store writes or clears that failed."},
	{ID: goShelf.MetricNavigationFailure, Name: "goshelf_navigation_failure_total", Help: "Navigation commands rejected by the navigator."},
	{ID: goShelf.MetricRequestTotal, Name: "goshelf_api_requests_total", Help: "API requests that produced a response."},
	{ID: goShelf.MetricRequestUnauthorized, Name: "goshelf_api_unauthorized_total", Help: "API responses with status 401."},
	{ID: goShelf.MetricRequestServerError, Name: "goshelf_api_server_error_total", Help: "API responses with a 5xx status."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goShelf.MetricRequestLatency, Name: "goshelf_api_request_duration_seconds", Help: "API request latency."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const (
	AuditDroppedName = "goshelf_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters that
// cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
