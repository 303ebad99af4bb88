package utils

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

var dateLayouts = []string{"2006-01-02", "Jan 2, 2006", "January 2, 2006"}

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// ParseAirDate parses an upstream date into UTC midnight
func ParseAirDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseAirTime parses an upstream clock time and renders it as HH:MM:SS
func ParseAirTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", ErrInvalidTime
}
