package store

import (
	"context"
	"testing"
)

type recordingOps struct {
	ops map[string]int
	ok  map[string]bool
}

func (r *recordingOps) RecordStoreOp(op string, ok bool) {
	if r.ops == nil {
		r.ops = map[string]int{}
		r.ok = map[string]bool{}
	}
	r.ops[op]++
	r.ok[op] = ok
}

func TestInstrumentRecordsOps(t *testing.T) {
	ctx := context.Background()
	recorder := &recordingOps{}
	client := Instrument(NewMemoryClient(), recorder)

	doc, err := client.CreateDocument(ctx, "issues", map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := client.UpdateFields(ctx, "issues", doc.ID, map[string]any{"title": "y"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := client.GetDocument(ctx, "issues", "missing"); err != ErrNotFound {
		t.Fatalf("get err = %v, want ErrNotFound", err)
	}

	if recorder.ops["create"] != 1 || recorder.ops["update"] != 1 || recorder.ops["get"] != 1 {
		t.Fatalf("unexpected op counts: %+v", recorder.ops)
	}
	if !recorder.ok["create"] || recorder.ok["get"] {
		t.Fatalf("unexpected outcomes: %+v", recorder.ok)
	}
}

func TestInstrumentNilRecorderPassthrough(t *testing.T) {
	client := NewMemoryClient()
	if got := Instrument(client, nil); got != Client(client) {
		t.Fatal("expected nil recorder to return the client unchanged")
	}
}
