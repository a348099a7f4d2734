// Package recognition reads licence plate text from violation snapshots.
package recognition

import (
	"context"
	"errors"
	"strings"
)

const (
	// PlateUnknown is used when the recognizer answered but found no plate.
	PlateUnknown = "UNKNOWN"
	// PlateError is used when the recognizer failed or timed out.
	PlateError = "ERR-001"
)

// ErrNoPlate is returned when a backend produced no plate text.
var ErrNoPlate = errors.New("recognition: no plate found")

// Recognizer returns the plate number visible in a JPEG image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Disabled never calls out; every violation gets PlateUnknown.
type Disabled struct{}

func (Disabled) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", ErrNoPlate
}

// PlateText maps a recognizer outcome to the text stored on a violation.
func PlateText(plate string, err error) string {
	switch {
	case errors.Is(err, ErrNoPlate):
		return PlateUnknown
	case err != nil:
		return PlateError
	}
	plate = normalizePlate(plate)
	if plate == "" {
		return PlateUnknown
	}
	return plate
}

func normalizePlate(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`.")
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
