// Package codec converts schedule command lists and recurrence day sets to and
// from the text columns of the schedules table.
//
// Command blobs are strict: malformed data yields a *persistence.CorruptDataError
// so the caller can drop the single offending row. Day sets are lenient: any
// malformed token turns the whole field into "no recurrence".
package codec

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/home-scheduler/internal/persistence"
)

const daySeparator = ","

type commandJSON struct {
	PeripheralID   string `json:"peripheralId"`
	PeripheralType string `json:"peripheralType"`
	Command        string `json:"command"`
}

// EncodeCommands serializes commands as a JSON array, preserving order.
func EncodeCommands(commands []persistence.ScheduleCommand) (string, error) {
	payload := make([]commandJSON, 0, len(commands))
	for _, cmd := range commands {
		payload = append(payload, commandJSON{
			PeripheralID:   cmd.PeripheralID,
			PeripheralType: cmd.PeripheralType,
			Command:        cmd.Command,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeCommands parses a blob produced by EncodeCommands.
func DecodeCommands(text string) ([]persistence.ScheduleCommand, error) {
	var payload []commandJSON
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, &persistence.CorruptDataError{Field: "commands", Err: err}
	}
	commands := make([]persistence.ScheduleCommand, 0, len(payload))
	for _, cmd := range payload {
		commands = append(commands, persistence.ScheduleCommand{
			PeripheralID:   cmd.PeripheralID,
			PeripheralType: cmd.PeripheralType,
			Command:        cmd.Command,
		})
	}
	return commands, nil
}

// EncodeDays joins the weekday indices with commas. The output is sorted and
// de-duplicated; an empty set encodes as the empty string.
func EncodeDays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	normalized := NormalizeDays(days)
	parts := make([]string, 0, len(normalized))
	for _, day := range normalized {
		parts = append(parts, strconv.Itoa(int(day)))
	}
	return strings.Join(parts, daySeparator)
}

// DecodeDays parses a field produced by EncodeDays. Any malformed or out of
// range token yields an empty set instead of an error.
func DecodeDays(text string) []time.Weekday {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	tokens := strings.Split(text, daySeparator)
	days := make([]time.Weekday, 0, len(tokens))
	for _, token := range tokens {
		value, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || value < int(time.Sunday) || value > int(time.Saturday) {
			return nil
		}
		days = append(days, time.Weekday(value))
	}
	return NormalizeDays(days)
}

// NormalizeDays sorts the set, removes duplicates and drops out of range values.
func NormalizeDays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	seen := make(map[time.Weekday]struct{}, len(days))
	result := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i] < result[j]
	})
	if len(result) == 0 {
		return nil
	}
	return result
}
