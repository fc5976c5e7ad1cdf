package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aethel-dev/aethel/pkg/core"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObservePatch(core.ModeCreate, "committed", 2*time.Millisecond)
	c.ObservePatch(core.ModeCreate, "committed", time.Millisecond)
	c.ObservePatch(core.ModeAppend, "noop", time.Millisecond)
	c.ObserveRead("ok")
	c.ObservePacks(3, 1)

	if got := testutil.ToFloat64(c.PatchesTotal.WithLabelValues("create", "committed")); got != 2 {
		t.Errorf("create/committed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PatchesTotal.WithLabelValues("append", "noop")); got != 1 {
		t.Errorf("append/noop = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ReadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("reads ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.PacksLoaded); got != 3 {
		t.Errorf("packs loaded = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(c.PatchDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on distinct registries must not panic.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
