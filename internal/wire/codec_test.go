package wire

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/calendar-sync/internal/event"
)

func sampleEvent() event.SharedEvent {
	return event.SharedEvent{
		Title:       "Standup",
		Location:    "Room A",
		AllDay:      false,
		StartYear:   2025,
		StartMonth:  5,
		StartDay:    2,
		StartHour:   9,
		StartMinute: 0,
		EndYear:     2025,
		EndMonth:    5,
		EndDay:      2,
		EndHour:     9,
		EndMinute:   15,
		Alarm:       event.Alarm10Min,
		Repeat:      event.RepeatWeekly,
		Memo:        "bring notes",
		Creator:     "alice",
		ID:          "alice_1748854800000_0001",
	}
}

func TestEncodeDecodeComplete_RoundTrip(t *testing.T) {
	t.Parallel()

	want := sampleEvent()
	got, err := DecodeComplete(Encode(want), nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestEncode_FieldLayout(t *testing.T) {
	t.Parallel()

	fields := strings.Split(Encode(sampleEvent()), Delimiter)
	if len(fields) != FullFieldCount {
		t.Fatalf("expected %d fields, got %d", FullFieldCount, len(fields))
	}
	if fields[0] != "Standup" || fields[2] != "false" || fields[4] != "5" || fields[16] != "alice" {
		t.Fatalf("unexpected layout: %v", fields)
	}
}

func TestEncode_SanitizesFreeText(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	ev.Title = "plan|review"
	ev.Memo = "line one\nline two"

	got, err := DecodeComplete(Encode(ev), nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Title != "plan/review" {
		t.Fatalf("expected delimiter substitution, got %q", got.Title)
	}
	if got.Memo != "line one line two" {
		t.Fatalf("expected newline substitution, got %q", got.Memo)
	}
}

func TestDecodeLegacy_AssignsCreatorAndFreshID(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	gen := func(creator string) string { return creator + "_generated" }

	got, err := DecodeLegacy(EncodeLegacy(ev), "bob", gen)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Creator != "bob" {
		t.Fatalf("expected creator bob, got %q", got.Creator)
	}
	if got.ID != "bob_generated" {
		t.Fatalf("expected generated id, got %q", got.ID)
	}
	if got.Title != ev.Title || got.StartHour != ev.StartHour {
		t.Fatalf("schedule fields lost: %+v", got)
	}
}

func TestDecodeComplete_SynthesizesFallbackID(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	seventeen := strings.Join(strings.Split(Encode(ev), Delimiter)[:CompleteFieldCount], Delimiter)

	now := func() time.Time { return time.UnixMilli(99) }
	got, err := DecodeComplete(seventeen, now)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ID != "legacy_99" {
		t.Fatalf("expected fallback id legacy_99, got %q", got.ID)
	}
	if got.Creator != "alice" {
		t.Fatalf("expected creator alice, got %q", got.Creator)
	}
}

func TestDecodeComplete_TrailingEmptyIDReadsAsAbsent(t *testing.T) {
	t.Parallel()

	ev := sampleEvent()
	ev.ID = ""
	now := func() time.Time { return time.UnixMilli(7) }

	got, err := DecodeComplete(Encode(ev), now)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ID != "legacy_7" {
		t.Fatalf("expected synthesized id, got %q", got.ID)
	}
}

func TestDecode_RejectsShortAndNonNumeric(t *testing.T) {
	t.Parallel()

	if _, err := DecodeComplete("too|short", nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := DecodeLegacy("too|short", "alice", nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}

	fields := strings.Split(Encode(sampleEvent()), Delimiter)
	fields[3] = "not-a-year"
	if _, err := DecodeComplete(strings.Join(fields, Delimiter), nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for numeric field, got %v", err)
	}
}

func TestFieldCount_IgnoresTrailingEmpties(t *testing.T) {
	t.Parallel()

	if got := FieldCount("a|b|c"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := FieldCount("a|b|c||"); got != 3 {
		t.Fatalf("expected 3 with trailing empties, got %d", got)
	}
	if got := FieldCount(Encode(sampleEvent())); got != FullFieldCount {
		t.Fatalf("expected %d, got %d", FullFieldCount, got)
	}
}
