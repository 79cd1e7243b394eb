package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/danmuck/wsmux/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordFrameSent()
	RecordFrameReceived()
	RecordFrameDropped(DropMalformedFrame)
	RecordChannelOutcome(OutcomeEstablished)

	if got := testutil.ToFloat64(framesDropped.WithLabelValues(DropMalformedFrame)); got < 1 {
		t.Fatalf("expected dropped counter >= 1, got %v", got)
	}
	if got := testutil.ToFloat64(channelOutcomes.WithLabelValues(OutcomeEstablished)); got < 1 {
		t.Fatalf("expected outcome counter >= 1, got %v", got)
	}
}
