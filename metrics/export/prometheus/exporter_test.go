package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

type fakeSource struct {
	snapshot goAuthClient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthClient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                          { return f.dropped }

func scrape(t testing.TB, exp *PrometheusExporter) (string, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Body.String(), rec
}

func TestScrapeEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	if got, _ := scrape(t, exp); strings.TrimSpace(got) != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestScrapeIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricLoginSuccess:  7,
				goAuthClient.MetricRefreshWaiter: 4,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out, _ := scrape(t, exp)
	for _, want := range []string{
		"goauthclient_login_success_total 7",
		"goauthclient_refresh_waiter_total 4",
		"goauthclient_logout_total 0",
		`goauthclient_refresh_latency_seconds_bucket{le="0.005"} 1`,
		`goauthclient_refresh_latency_seconds_bucket{le="0.5"} 28`,
		`goauthclient_refresh_latency_seconds_bucket{le="+Inf"} 36`,
		"goauthclient_refresh_latency_seconds_count 36",
		"goauthclient_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters:   map[goAuthClient.MetricID]uint64{goAuthClient.MetricLoginSuccess: 1},
			Histograms: map[goAuthClient.MetricID][]uint64{},
		},
	})

	out, rec := scrape(t, exp)
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if strings.Contains(out, "goauthclient_refresh_latency_seconds") {
		t.Fatalf("histogram should be absent when latency is disabled, got:\n%s", out)
	}
}

func TestExporterFromClient(t *testing.T) {
	client, err := goAuthClient.New().
		WithBaseURL("https://crm.example.com/api").
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer client.Close()

	exp := NewPrometheusExporter(client)
	out, _ := scrape(t, exp)
	if !strings.Contains(out, "goauthclient_login_success_total 0") {
		t.Fatalf("expected zeroed counters from a fresh client, got:\n%s", out)
	}
}

func BenchmarkScrape(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthClient.MetricsSnapshot{
			Counters: map[goAuthClient.MetricID]uint64{
				goAuthClient.MetricLoginSuccess:    1000,
				goAuthClient.MetricLoginFailure:    40,
				goAuthClient.MetricRefreshSuccess:  800,
				goAuthClient.MetricRefreshFailure:  10,
				goAuthClient.MetricRequestReplayed: 800,
				goAuthClient.MetricGuardAllowed:    20000,
				goAuthClient.MetricGuardCacheHit:   19000,
			},
			Histograms: map[goAuthClient.MetricID][]uint64{
				goAuthClient.MetricRefreshLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exp.Registry().Gather(); err != nil {
			b.Fatal(err)
		}
	}
}
