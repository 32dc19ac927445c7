// Package parser extracts coordinates from the text rendered in the map popup.
//
// The popup is expected to embed a "(lat, lon)" pair somewhere in free text,
// e.g. "A popup with coordinates (51.505, -0.09)".
package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/mapwatch/internal/models"
)

// Reasons wrapped by FormatError.
var (
	ErrNoOpenParen  = errors.New("no opening parenthesis")
	ErrNoSeparator  = errors.New("no comma after opening parenthesis")
	ErrNoCloseParen = errors.New("no closing parenthesis after comma")
	ErrNotANumber   = errors.New("coordinate is not a decimal number")
)

// FormatError is returned when the popup text does not carry the expected
// coordinate pattern. Text is the raw popup content.
type FormatError struct {
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("popup format changed: %v (text was: %q)", e.Err, e.Text)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ParseLatitude returns the number between the first '(' and the following ','.
func ParseLatitude(text string) (float64, error) {
	raw, _, err := split(text)
	if err != nil {
		return 0, err
	}

	return parseNumber(text, raw)
}

// ParseCoordinates reads the full "(lat, lon)" pair. Unlike ParseLatitude it
// also requires a ')' after the comma.
func ParseCoordinates(text string) (models.Coordinates, error) {
	rawLat, rest, err := split(text)
	if err != nil {
		return models.Coordinates{}, err
	}

	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return models.Coordinates{}, &FormatError{Text: text, Err: ErrNoCloseParen}
	}

	lat, err := parseNumber(text, rawLat)
	if err != nil {
		return models.Coordinates{}, err
	}
	lon, err := parseNumber(text, rest[:end])
	if err != nil {
		return models.Coordinates{}, err
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// split returns the text between the first '(' and the next ',' and whatever
// follows that comma.
func split(text string) (string, string, error) {
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return "", "", &FormatError{Text: text, Err: ErrNoOpenParen}
	}

	inner := text[open+1:]
	comma := strings.IndexByte(inner, ',')
	if comma < 0 {
		return "", "", &FormatError{Text: text, Err: ErrNoSeparator}
	}

	return inner[:comma], inner[comma+1:], nil
}

func parseNumber(text, raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &FormatError{Text: text, Err: fmt.Errorf("%w: %q", ErrNotANumber, strings.TrimSpace(raw))}
	}

	return value, nil
}
