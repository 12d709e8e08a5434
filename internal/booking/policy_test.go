package booking

import (
	"testing"
	"time"

	"github.com/tablebook/reservation/internal/model"
)

func TestComputeFee(t *testing.T) {
	policy := NewCancellationPolicy(0)
	res := &model.Reservation{Date: "2024-06-07", Time: "18:30"}
	at := func(value string) time.Time {
		ts, err := time.Parse("2006-01-02 15:04", value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		return ts
	}

	cases := []struct {
		name       string
		now        time.Time
		isMerchant bool
		want       int64
	}{
		{"merchant always free", at("2024-06-07 18:29"), true, 0},
		{"merchant free even same minute", at("2024-06-07 18:30"), true, 0},
		{"customer well ahead", at("2024-06-07 15:30"), false, 0},
		{"customer exactly one hour out", at("2024-06-07 17:30"), false, 0},
		{"customer just inside window", at("2024-06-07 17:31"), false, DefaultLateFeeCents},
		{"customer twenty minutes out", at("2024-06-07 18:10"), false, DefaultLateFeeCents},
		{"customer after start time", at("2024-06-07 19:00"), false, DefaultLateFeeCents},
		{"customer day before", at("2024-06-06 18:30"), false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.ComputeFee(res, tc.now, tc.isMerchant); got != tc.want {
				t.Errorf("ComputeFee(%s, merchant=%v) = %d, want %d", tc.now, tc.isMerchant, got, tc.want)
			}
		})
	}
}

func TestComputeFeeCustomFlatFee(t *testing.T) {
	policy := NewCancellationPolicy(2500)
	res := &model.Reservation{Date: "2024-06-07", Time: "18:30"}
	now := time.Date(2024, 6, 7, 18, 20, 0, 0, time.UTC)

	if got := policy.ComputeFee(res, now, false); got != 2500 {
		t.Errorf("fee = %d, want 2500", got)
	}
	if got := policy.ComputeFee(res, now, true); got != 0 {
		t.Errorf("merchant fee = %d, want 0", got)
	}
}

func TestComputeFeeUnparseableScheduleChargesNothing(t *testing.T) {
	policy := NewCancellationPolicy(0)
	res := &model.Reservation{Date: "junk", Time: "18:30"}

	if got := policy.ComputeFee(res, time.Now(), false); got != 0 {
		t.Errorf("fee = %d, want 0 for unparseable schedule", got)
	}
}
