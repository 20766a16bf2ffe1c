package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/calendar-sync/internal/event"
)

// Field counts of the two encoding variants. A legacy encoding carries the 13
// schedule fields plus the three free-text fields; a complete encoding adds
// the creator and, optionally, the identifier.
const (
	LegacyFieldCount   = 16
	CompleteFieldCount = 17
	FullFieldCount     = 18
)

// ErrMalformed indicates an event encoding with too few fields or a numeric
// field that does not parse. Callers log and drop the offending line.
var ErrMalformed = errors.New("wire: malformed event encoding")

// Encode renders the complete 18-field encoding of a shared event. Free-text
// fields are sanitized so they can never contain the delimiter or a newline;
// the substitution is lossy but keeps decoding aligned.
func Encode(ev event.SharedEvent) string {
	return strings.Join(append(coreFields(ev), sanitize(ev.Creator), sanitize(ev.ID)), Delimiter)
}

// EncodeLegacy renders the 16-field encoding without creator and identifier,
// as produced by senders that predate identifier support.
func EncodeLegacy(ev event.SharedEvent) string {
	return strings.Join(coreFields(ev), Delimiter)
}

func coreFields(ev event.SharedEvent) []string {
	return []string{
		sanitize(ev.Title),
		sanitize(ev.Location),
		strconv.FormatBool(ev.AllDay),
		strconv.Itoa(ev.StartYear),
		strconv.Itoa(ev.StartMonth),
		strconv.Itoa(ev.StartDay),
		strconv.Itoa(ev.StartHour),
		strconv.Itoa(ev.StartMinute),
		strconv.Itoa(ev.EndYear),
		strconv.Itoa(ev.EndMonth),
		strconv.Itoa(ev.EndDay),
		strconv.Itoa(ev.EndHour),
		strconv.Itoa(ev.EndMinute),
		sanitize(ev.Alarm),
		sanitize(ev.Repeat),
		sanitize(ev.Memo),
	}
}

var sanitizer = strings.NewReplacer(Delimiter, "/", "\n", " ", "\r", " ")

func sanitize(s string) string {
	return sanitizer.Replace(s)
}

// FieldCount probes how many fields a payload carries, so callers can choose
// between the legacy and complete decoders. Trailing empty fields do not
// count, matching the historical parser.
func FieldCount(payload string) int {
	return len(splitFields(payload))
}

// splitFields splits an encoding and drops trailing empty fields. The
// original producers never emitted trailing empties, and the historical
// consumer discarded them, so an empty identifier slot reads as absent.
func splitFields(payload string) []string {
	fields := strings.Split(payload, Delimiter)
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// DecodeLegacy parses an encoding whose creator is supplied externally, for
// senders that transmit events predating identifier support. A fresh
// identifier is assigned via idGen.
func DecodeLegacy(payload, creator string, idGen event.IDGenerator) (event.SharedEvent, error) {
	fields := splitFields(payload)
	if len(fields) < LegacyFieldCount {
		return event.SharedEvent{}, fmt.Errorf("%w: %d fields, want at least %d", ErrMalformed, len(fields), LegacyFieldCount)
	}

	ev, err := decodeCore(fields)
	if err != nil {
		return event.SharedEvent{}, err
	}

	ev.Creator = creator
	if idGen != nil {
		ev.ID = idGen(creator)
	}
	return ev, nil
}

// DecodeComplete parses an encoding that carries its creator. When the
// identifier field is absent a fallback of the form legacy_<timestamp> is
// synthesized. The now func is injectable for tests; nil uses time.Now.
func DecodeComplete(payload string, now func() time.Time) (event.SharedEvent, error) {
	fields := splitFields(payload)
	if len(fields) < CompleteFieldCount {
		return event.SharedEvent{}, fmt.Errorf("%w: %d fields, want at least %d", ErrMalformed, len(fields), CompleteFieldCount)
	}

	ev, err := decodeCore(fields)
	if err != nil {
		return event.SharedEvent{}, err
	}

	ev.Creator = fields[16]
	if len(fields) >= FullFieldCount {
		ev.ID = fields[17]
	} else {
		ev.ID = event.FallbackID(now)
	}
	return ev, nil
}

func decodeCore(fields []string) (event.SharedEvent, error) {
	numbers := make([]int, 10)
	for i, raw := range fields[3:13] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return event.SharedEvent{}, fmt.Errorf("%w: field %d: %q is not a number", ErrMalformed, i+3, raw)
		}
		numbers[i] = n
	}

	return event.SharedEvent{
		Title:       fields[0],
		Location:    fields[1],
		AllDay:      strings.EqualFold(fields[2], "true"),
		StartYear:   numbers[0],
		StartMonth:  numbers[1],
		StartDay:    numbers[2],
		StartHour:   numbers[3],
		StartMinute: numbers[4],
		EndYear:     numbers[5],
		EndMonth:    numbers[6],
		EndDay:      numbers[7],
		EndHour:     numbers[8],
		EndMinute:   numbers[9],
		Alarm:       fields[13],
		Repeat:      fields[14],
		Memo:        fields[15],
	}, nil
}
