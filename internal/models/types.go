package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BroadcasterKind tells which table a broadcaster lives in
type BroadcasterKind string

const (
	BroadcasterUnspecified BroadcasterKind = ""
	BroadcasterNetwork     BroadcasterKind = "network"
	BroadcasterWebChannel  BroadcasterKind = "web_channel"
)

// Outcome is the result of reconciling a single release record
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeSkipped  Outcome = "skipped"
)

// ImportStats is the tally of one import run
type ImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Record folds a single outcome into the tally
func (s *ImportStats) Record(o Outcome) {
	switch o {
	case OutcomeImported:
		s.Imported++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// SyncStats is the tally of a show sync pass
type SyncStats struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// StringList is stored as a JSON array in a text column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
