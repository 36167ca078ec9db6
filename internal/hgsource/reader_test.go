package hgsource

import "testing"

func TestParseHgtagsLastWins(t *testing.T) {
	content := "aaaa v1\nbbbb v1\ncccc v2\n"
	tags := parseHgtags(content)
	if tags["v1"] != "bbbb" {
		t.Fatalf("expected the later line to win for a repeated tag, got %q", tags["v1"])
	}
	if tags["v2"] != "cccc" {
		t.Fatalf("expected v2 -> cccc, got %q", tags["v2"])
	}
}

func TestParseHgtagsRemovalSentinel(t *testing.T) {
	zero := "0000000000000000000000000000000000000000"
	content := "aaaa v1\n" + zero + " v1\n"
	tags := parseHgtags(content)
	if _, ok := tags["v1"]; ok {
		t.Fatalf("expected the all-zero sentinel line to remove v1")
	}
}

func TestParseLogRecord(t *testing.T) {
	rec := "0" + fieldSep + "deadbeef" + fieldSep + "" + fieldSep + "default" + fieldSep + "alice" + fieldSep + "1000 0" + fieldSep + "initial" + recordSep
	headers, err := parseLog(rec)
	if err != nil {
		t.Fatalf("parseLog: %v", err)
	}
	if len(headers) != 1 {
		t.Fatalf("expected 1 header, got %d", len(headers))
	}
	h := headers[0]
	if h.node != "deadbeef" || h.branch != "default" || h.message != "initial" {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestParseHgDateOffset(t *testing.T) {
	when, err := parseHgDate("0 -3600")
	if err != nil {
		t.Fatalf("parseHgDate: %v", err)
	}
	_, offset := when.Zone()
	if offset != 3600 {
		t.Fatalf("expected a +1h zone offset (hg's tz sign is flipped from Go's), got %d", offset)
	}
}
