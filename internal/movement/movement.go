// Package movement defines the supported exercise movements, their form rules
// and the per-frame evaluator that turns a pose into a verdict.
package movement

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMovement is returned when a movement name does not match any supported type.
var ErrUnknownMovement = errors.New("unknown movement")

// Type is a supported exercise movement.
type Type int

const (
	Squat Type = iota + 1
	PushUp
	Lunge
	BicepCurl
	ShoulderPress
)

var typeNames = map[Type]string{
	Squat:         "Squat",
	PushUp:        "Push-up",
	Lunge:         "Lunge",
	BicepCurl:     "Bicep Curl",
	ShoulderPress: "Shoulder Press",
}

var typeSlugs = map[Type]string{
	Squat:         "squat",
	PushUp:        "push-up",
	Lunge:         "lunge",
	BicepCurl:     "bicep-curl",
	ShoulderPress: "shoulder-press",
}

// Types returns all supported movements in display order.
func Types() []Type {
	return []Type{Squat, PushUp, Lunge, BicepCurl, ShoulderPress}
}

// String returns the display name, e.g. "Bicep Curl".
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Slug returns the URL-safe name, e.g. "bicep-curl".
func (t Type) Slug() string {
	return typeSlugs[t]
}

// Valid reports whether t is a supported movement.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType resolves a display name or slug, ignoring case, spaces,
// hyphens and underscores. "Push-up", "pushup" and "push_up" all resolve to PushUp.
func ParseType(name string) (Type, error) {
	key := normalize(name)
	if key != "" {
		for _, t := range Types() {
			if normalize(typeNames[t]) == key {
				return t, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMovement, name)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// MarshalText encodes the movement by display name.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMovement, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes any name accepted by ParseType.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
