package storage

import (
	"context"
	"os"
	"testing"
)

// FuzzDecode feeds arbitrary bytes to the decoder. It must never panic, and
// anything it accepts must survive a trip through the current layout.
func FuzzDecode(f *testing.F) {
	f.Add([]byte(`{"schema_version":2,"tasks":[],"lists":[]}`))
	f.Add([]byte(`{"schemaVersion":1,"items":[{"id":"a","title":"x","tags":["work"]}]}`))
	f.Add([]byte(`[{"id":"a","text":"legacy","done":true}]`))
	f.Add([]byte(`{"tasks":[{"id":"a","subtasks":[{"title":"no id"}]}]}`))
	f.Add([]byte(`{"tasks":null}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(""))
	f.Add([]byte("\x00\x01\x02"))
	f.Add([]byte(`{"items":[{"tags":[{"name":"x","color":"neon"}]}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Decode panicked on %q: %v", data, r)
			}
		}()

		snap, _, err := Decode(data)
		if err != nil {
			return
		}
		snap.Normalize()
		encoded, err := Encode(snap)
		if err != nil {
			t.Fatalf("Encode after successful Decode: %v", err)
		}
		again, format, err := Decode(encoded)
		if err != nil {
			t.Fatalf("re-decode: %v", err)
		}
		if format != FormatCurrent {
			t.Fatalf("re-decoded format = %v, want current", format)
		}
		if len(again.Tasks) != len(snap.Tasks) {
			t.Fatalf("task count changed: %d -> %d", len(snap.Tasks), len(again.Tasks))
		}
	})
}

// FuzzFileReplicaLoad writes arbitrary bytes as the snapshot file. Loading
// must never fail or panic, whatever is on disk.
func FuzzFileReplicaLoad(f *testing.F) {
	f.Add([]byte(`{"schemaVersion":1,"items":[]}`))
	f.Add([]byte(`not json at all`))
	f.Add([]byte(`{"tasks":[{"id":"a","due_date":"yesterday"}]}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		r := createTestReplica(t)
		if err := os.WriteFile(r.Path(), data, 0o600); err != nil {
			t.Fatal(err)
		}
		snap, err := r.LoadSnapshot(context.Background())
		if err != nil {
			t.Fatalf("LoadSnapshot: %v", err)
		}
		if !snap.HasList("default") {
			t.Fatal("loaded snapshot lacks the default list")
		}
	})
}
