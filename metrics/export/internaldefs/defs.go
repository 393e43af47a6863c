package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one client counter for exporters.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram for exporters.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dropped audit events.
const AuditDroppedName = "goauthclient_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricLoginSuccess, Name: "goauthclient_login_success_total", Help: "Logins that ended authenticated."},
	{ID: goAuthClient.MetricLoginFailure, Name: "goauthclient_login_failure_total", Help: "Logins rejected by the server or transport."},
	{ID: goAuthClient.MetricLoginNotAuthorized, Name: "goauthclient_login_not_authorized_total", Help: "Logins whose roles were outside the allow-list."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "goauthclient_refresh_success_total", Help: "Refresh calls that stored a new token pair."},
	{ID: goAuthClient.MetricRefreshFailure, Name: "goauthclient_refresh_failure_total", Help: "Refresh calls that ended the session."},
	{ID: goAuthClient.MetricRefreshDiscarded, Name: "goauthclient_refresh_discarded_total", Help: "Refresh results dropped after a logout or re-login."},
	{ID: goAuthClient.MetricRefreshWaiter, Name: "goauthclient_refresh_waiter_total", Help: "Requests that joined an in-flight refresh cycle."},
	{ID: goAuthClient.MetricRequestReplayed, Name: "goauthclient_request_replayed_total", Help: "Requests replayed after a refresh."},
	{ID: goAuthClient.MetricNetworkError, Name: "goauthclient_network_error_total", Help: "Transport failures."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logouts, explicit or forced."},
	{ID: goAuthClient.MetricGuardAllowed, Name: "goauthclient_guard_allowed_total", Help: "Allowed guard decisions."},
	{ID: goAuthClient.MetricGuardDenied, Name: "goauthclient_guard_denied_total", Help: "Denied guard decisions."},
	{ID: goAuthClient.MetricGuardCacheHit, Name: "goauthclient_guard_cache_hit_total", Help: "Guard decisions served from the decision cache."},
	{ID: goAuthClient.MetricSessionLost, Name: "goauthclient_session_lost_total", Help: "Sessions ended because the token store lost the record."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRefreshLatency, Name: "goauthclient_refresh_latency_seconds", Help: "Refresh round-trip latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding
// +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix turns HistogramBounds into metric-name-safe suffixes.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding
// with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
