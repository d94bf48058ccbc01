package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFrame(t *testing.T) {
	frames := testutil.ToFloat64(framesForwarded)
	bytes := testutil.ToFloat64(bytesForwarded)

	RecordFrame(614400, 2*time.Millisecond)
	RecordFrame(1000, time.Millisecond)

	if got := testutil.ToFloat64(framesForwarded) - frames; got != 2 {
		t.Errorf("frames delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(bytesForwarded) - bytes; got != 615400 {
		t.Errorf("bytes delta = %v, want 615400", got)
	}
	if got := testutil.ToFloat64(frameBytes); got != 1000 {
		t.Errorf("frame_bytes = %v, want 1000", got)
	}
}

func TestRecordWarmupDiscard(t *testing.T) {
	before := testutil.ToFloat64(warmupDiscards)
	RecordWarmupDiscard()
	if got := testutil.ToFloat64(warmupDiscards) - before; got != 1 {
		t.Errorf("warmup delta = %v, want 1", got)
	}
}

func TestRecordCorruptFrame(t *testing.T) {
	before := testutil.ToFloat64(corruptFrames)
	RecordCorruptFrame()
	RecordCorruptFrame()
	if got := testutil.ToFloat64(corruptFrames) - before; got != 2 {
		t.Errorf("corrupt delta = %v, want 2", got)
	}
}

func TestSetState(t *testing.T) {
	SetState("init")
	SetState("steady")

	for _, s := range States {
		want := 0.0
		if s == "steady" {
			want = 1
		}
		if got := testutil.ToFloat64(state.WithLabelValues(s)); got != want {
			t.Errorf("state{%s} = %v, want %v", s, got, want)
		}
	}
}

func TestRecordError(t *testing.T) {
	driver := testutil.ToFloat64(errorsTotal.WithLabelValues("DRIVER"))
	unknown := testutil.ToFloat64(errorsTotal.WithLabelValues("unknown"))

	RecordError("DRIVER")
	RecordError("")

	if got := testutil.ToFloat64(errorsTotal.WithLabelValues("DRIVER")) - driver; got != 1 {
		t.Errorf("DRIVER delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(errorsTotal.WithLabelValues("unknown")) - unknown; got != 1 {
		t.Errorf("unknown delta = %v, want 1", got)
	}
}
