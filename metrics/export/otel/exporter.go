package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on each collection. *goAuthClient.Client
// satisfies it.
type Source interface {
	MetricsSnapshot() goAuthClient.MetricsSnapshot
	AuditDropped() uint64
}

// Gauges are point-in-time readings observed next to the counters. A nil
// func is not registered. They must not change session state.
type Gauges struct {
	SessionActive  func() bool
	GuardCacheSize func() int
}

type point struct {
	id    goAuthClient.MetricID
	attrs attribute.Set
}

type family struct {
	name   string
	unit   string
	help   string
	points []point
}

func by(key, value string) attribute.Set {
	return attribute.NewSet(attribute.String(key, value))
}

// Counters sharing a family are one instrument told apart by attribute.
var families = []family{
	{"goauthclient.logins", "{login}", "Login attempts by outcome.", []point{
		{goAuthClient.MetricLoginSuccess, by("outcome", "success")},
		{goAuthClient.MetricLoginFailure, by("outcome", "failure")},
		{goAuthClient.MetricLoginNotAuthorized, by("outcome", "not_authorized")},
	}},
	{"goauthclient.refreshes", "{refresh}", "Refresh exchanges by outcome.", []point{
		{goAuthClient.MetricRefreshSuccess, by("outcome", "success")},
		{goAuthClient.MetricRefreshFailure, by("outcome", "failure")},
		{goAuthClient.MetricRefreshDiscarded, by("outcome", "discarded")},
	}},
	{"goauthclient.refresh.waiters", "{request}", "Requests that joined a refresh already in flight.", []point{
		{goAuthClient.MetricRefreshWaiter, *attribute.EmptySet()},
	}},
	{"goauthclient.requests.replayed", "{request}", "Requests sent again after a refresh.", []point{
		{goAuthClient.MetricRequestReplayed, *attribute.EmptySet()},
	}},
	{"goauthclient.network.errors", "{error}", "Requests that never got a response.", []point{
		{goAuthClient.MetricNetworkError, *attribute.EmptySet()},
	}},
	{"goauthclient.session.ends", "{session}", "Sessions ended, by cause.", []point{
		{goAuthClient.MetricLogout, by("cause", "logout")},
		{goAuthClient.MetricSessionLost, by("cause", "store_lost")},
	}},
	{"goauthclient.guard.decisions", "{decision}", "Route decisions by result.", []point{
		{goAuthClient.MetricGuardAllowed, by("result", "allowed")},
		{goAuthClient.MetricGuardDenied, by("result", "denied")},
	}},
	{"goauthclient.guard.cache.hits", "{decision}", "Route decisions answered from the memo.", []point{
		{goAuthClient.MetricGuardCacheHit, *attribute.EmptySet()},
	}},
}

// latencyBounds labels each refresh latency bucket by its upper bound in
// seconds, the last one "+Inf".
var latencyBounds = func() []attribute.Set {
	out := make([]attribute.Set, 0, len(internaldefs.HistogramUpperBounds)+1)
	for _, b := range internaldefs.HistogramUpperBounds {
		out = append(out, by("le", strconv.FormatFloat(b, 'g', -1, 64)))
	}
	return append(out, by("le", "+Inf"))
}()

type boundFamily struct {
	ins    metric.Int64ObservableCounter
	points []point
}

// Exporter publishes a client's counters through an OpenTelemetry meter.
type Exporter struct {
	source       Source
	gauges       Gauges
	registration metric.Registration

	families      []boundFamily
	latency       metric.Int64ObservableGauge
	latencyCount  metric.Int64ObservableCounter
	auditDropped  metric.Int64ObservableCounter
	sessionActive metric.Int64ObservableGauge
	cacheSize     metric.Int64ObservableGauge
}

// New registers instruments on meter that read client. The session gauge
// reads the in-memory snapshot, so collection never touches the store.
func New(meter metric.Meter, client *goAuthClient.Client) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, client, Gauges{
		SessionActive:  func() bool { return client.Session().Authenticated },
		GuardCacheSize: client.Decider().Len,
	})
}

// NewFromSource is New for any Source.
func NewFromSource(meter metric.Meter, source Source, gauges Gauges) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source, gauges: gauges}
	var observables []metric.Observable

	for _, f := range families {
		ins, err := meter.Int64ObservableCounter(f.name, metric.WithUnit(f.unit), metric.WithDescription(f.help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", f.name, err)
		}
		e.families = append(e.families, boundFamily{ins: ins, points: f.points})
		observables = append(observables, ins)
	}

	var err error
	if e.latency, err = meter.Int64ObservableGauge("goauthclient.refresh.latency.bucket",
		metric.WithUnit("{refresh}"),
		metric.WithDescription("Refreshes at or under the le bound, cumulative.")); err != nil {
		return nil, fmt.Errorf("latency buckets: %w", err)
	}
	if e.latencyCount, err = meter.Int64ObservableCounter("goauthclient.refresh.latency.count",
		metric.WithUnit("{refresh}"),
		metric.WithDescription("Refreshes with a recorded latency.")); err != nil {
		return nil, fmt.Errorf("latency count: %w", err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter("goauthclient.audit.dropped",
		metric.WithUnit("{event}"),
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("audit dropped: %w", err)
	}
	observables = append(observables, e.latency, e.latencyCount, e.auditDropped)

	if gauges.SessionActive != nil {
		if e.sessionActive, err = meter.Int64ObservableGauge("goauthclient.session.active",
			metric.WithUnit("{session}"),
			metric.WithDescription("1 while a user is signed in.")); err != nil {
			return nil, fmt.Errorf("session gauge: %w", err)
		}
		observables = append(observables, e.sessionActive)
	}
	if gauges.GuardCacheSize != nil {
		if e.cacheSize, err = meter.Int64ObservableGauge("goauthclient.guard.cache.size",
			metric.WithUnit("{entry}"),
			metric.WithDescription("Memoized route decisions.")); err != nil {
			return nil, fmt.Errorf("cache gauge: %w", err)
		}
		observables = append(observables, e.cacheSize)
	}

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, p := range f.points {
			o.ObserveInt64(f.ins, int64(snap.Counters[p.id]), metric.WithAttributeSet(p.attrs))
		}
	}

	if raw, ok := snap.Histograms[goAuthClient.MetricRefreshLatency]; ok {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, le := range latencyBounds {
			o.ObserveInt64(e.latency, int64(cum[i]), metric.WithAttributeSet(le))
		}
		o.ObserveInt64(e.latencyCount, int64(cum[len(cum)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if e.sessionActive != nil {
		var active int64
		if e.gauges.SessionActive() {
			active = 1
		}
		o.ObserveInt64(e.sessionActive, active)
	}
	if e.cacheSize != nil {
		o.ObserveInt64(e.cacheSize, int64(e.gauges.GuardCacheSize()))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
