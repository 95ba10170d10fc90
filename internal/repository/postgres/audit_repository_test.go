package postgres

import (
	"testing"
	"time"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/google/uuid"
)

func TestToRowAssignsIDAndTimestamp(t *testing.T) {
	row := toRow(&domain.AuditEntry{AccountID: "acc", Operation: "object:upload", Key: "a.txt", Outcome: domain.AuditOK})

	if _, err := uuid.Parse(row.ID); err != nil {
		t.Fatalf("id %q is not a uuid: %v", row.ID, err)
	}
	if row.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
	if row.ObjectKey != "a.txt" || row.Outcome != "ok" {
		t.Fatalf("row = %+v", row)
	}
}

func TestRowRoundTrip(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := &domain.AuditEntry{
		ID:         "6f1d6f0e-0c1a-4c59-9a55-0d0c1b8e1a11",
		RequestID:  "req-1",
		AccountID:  "acc",
		Operation:  "batch:deleteMultiple",
		Bucket:     "photos",
		Outcome:    domain.AuditFailed,
		ErrorKind:  "delete",
		Message:    "r2 delete failed",
		DurationMS: 42,
		CreatedAt:  at,
	}
	out := toRow(in).toDomain()
	if *out != *in {
		t.Fatalf("round trip changed entry:\n got %+v\nwant %+v", out, in)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 50, -1: 50, 10: 10, 500: 500, 501: 500}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
