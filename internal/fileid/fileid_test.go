package fileid

import "testing"

func TestRecordID_deterministic(t *testing.T) {
	id1 := RecordID("/foo/bar.txt")
	id2 := RecordID("/foo/bar.txt")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if len(id1) < 10 {
		t.Errorf("ID too short: %q", id1)
	}
	if id1[:len(prefix)] != prefix {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
}

func TestRecordID_differentPaths(t *testing.T) {
	if RecordID("/foo/bar.txt") == RecordID("/foo/baz.txt") {
		t.Error("different paths should give different IDs")
	}
}

func TestRecordID_normalized(t *testing.T) {
	id1 := RecordID("/foo/bar")
	id2 := RecordID("/foo/bar/")
	id3 := RecordID("/foo/./bar")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should normalize to one ID: %q %q %q", id1, id2, id3)
	}
}
