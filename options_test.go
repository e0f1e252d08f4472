package renderpool_test

import (
	"testing"

	rp "github.com/PeasPilaf/wirklich"
)

func TestFillDefaults(t *testing.T) {
	t.Parallel()

	var o rp.Options
	o.FillDefaults()

	if len(o.Classes) == 0 {
		t.Fatal("expected Classes to be set by FillDefaults")
	}
	if cc, ok := o.Classes[rp.DefaultClass]; !ok || cc.Cap <= 0 {
		t.Fatalf("default class config = %+v; want positive cap", cc)
	}
	if o.PerWorkerLimit <= 0 || o.JobTimeout <= 0 {
		t.Fatalf("limits not defaulted: %+v", o)
	}
	if o.Metrics == nil {
		t.Fatal("expected Metrics to default to a no-op policy")
	}
}

func TestFillDefaultsClampsWarm(t *testing.T) {
	t.Parallel()

	o := rp.Options{
		Classes: map[rp.Capability]rp.ClassConfig{
			rp.DefaultClass: {Cap: 2, Warm: 5},
		},
	}
	o.FillDefaults()

	if got := o.Classes[rp.DefaultClass].Warm; got != 2 {
		t.Fatalf("warm = %d; want clamped to cap 2", got)
	}
}
