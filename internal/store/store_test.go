package store

import (
	"testing"

	"tokokasir/internal/domain"
)

func TestReceivableStatus(t *testing.T) {
	cases := []struct {
		due, paid int64
		want      string
	}{
		{10000, 0, domain.ReceivableUnpaid},
		{10000, 1, domain.ReceivablePartial},
		{10000, 9999, domain.ReceivablePartial},
		{10000, 10000, domain.ReceivablePaid},
	}
	for _, tc := range cases {
		if got := ReceivableStatus(tc.due, tc.paid); got != tc.want {
			t.Fatalf("ReceivableStatus(%d, %d) = %s, want %s", tc.due, tc.paid, got, tc.want)
		}
	}
}
