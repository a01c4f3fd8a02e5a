package codec

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

func TestCommands_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		commands []persistence.ScheduleCommand
	}{
		{name: "empty", commands: []persistence.ScheduleCommand{}},
		{name: "single", commands: []persistence.ScheduleCommand{
			{PeripheralID: "1.1", PeripheralType: "light", Command: "TURN ON"},
		}},
		{name: "preserves order and duplicates", commands: []persistence.ScheduleCommand{
			{PeripheralID: "2.4", PeripheralType: "rolling shutter", Command: "OPEN"},
			{PeripheralID: "1.1", PeripheralType: "light", Command: "TURN OFF"},
			{PeripheralID: "2.4", PeripheralType: "rolling shutter", Command: "STOP"},
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			text, err := EncodeCommands(tc.commands)
			if err != nil {
				t.Fatalf("EncodeCommands returned error: %v", err)
			}
			decoded, err := DecodeCommands(text)
			if err != nil {
				t.Fatalf("DecodeCommands returned error: %v", err)
			}
			if !reflect.DeepEqual(decoded, tc.commands) {
				t.Fatalf("round trip mismatch: got %#v, want %#v", decoded, tc.commands)
			}
		})
	}
}

func TestEncodeCommands_Nil(t *testing.T) {
	t.Parallel()

	text, err := EncodeCommands(nil)
	if err != nil {
		t.Fatalf("EncodeCommands returned error: %v", err)
	}
	if text != "[]" {
		t.Fatalf("expected empty JSON array, got %q", text)
	}
}

func TestDecodeCommands_Corrupt(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "not json", `{"peripheralId":"1"}`, `[{"peripheralId":1}]`} {
		_, err := DecodeCommands(input)
		var corrupt *persistence.CorruptDataError
		if !errors.As(err, &corrupt) {
			t.Fatalf("expected CorruptDataError for %q, got %v", input, err)
		}
		if corrupt.Field != "commands" {
			t.Fatalf("expected field commands, got %q", corrupt.Field)
		}
	}
}

func TestDays_RoundTrip(t *testing.T) {
	t.Parallel()

	sets := [][]time.Weekday{
		nil,
		{time.Wednesday},
		{time.Sunday, time.Saturday},
		{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	}

	for _, set := range sets {
		got := DecodeDays(EncodeDays(set))
		if !reflect.DeepEqual(got, set) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, set)
		}
	}
}

func TestEncodeDays_Format(t *testing.T) {
	t.Parallel()

	if got := EncodeDays([]time.Weekday{time.Friday, time.Monday, time.Friday}); got != "1,5" {
		t.Fatalf("expected sorted de-duplicated list, got %q", got)
	}
	if got := EncodeDays(nil); got != "" {
		t.Fatalf("expected empty text for empty set, got %q", got)
	}
}

func TestDecodeDays_Lenient(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "garbage", "1,x,3", "7", "-1", "1,,2"} {
		if got := DecodeDays(input); len(got) != 0 {
			t.Fatalf("expected empty set for %q, got %v", input, got)
		}
	}

	if got := DecodeDays(" 3, 5 "); !reflect.DeepEqual(got, []time.Weekday{time.Wednesday, time.Friday}) {
		t.Fatalf("expected whitespace tolerant decoding, got %v", got)
	}
}
