package inventory

import (
	"encoding/json"
	"fmt"
)

// Answer is the tri-state selection for one trait pair on one date.
// The wire form is null (unanswered), 0 (left / self-will) or 1 (right / God's will),
// matching the persisted history schema.
type Answer int8

const (
	Unanswered Answer = iota
	Left
	Right
)

// String returns a stable label for logging.
func (a Answer) String() string {
	switch a {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unanswered"
	}
}

// Valid reports whether the value is one of the three defined states.
func (a Answer) Valid() bool {
	return a == Unanswered || a == Left || a == Right
}

// MarshalJSON encodes to the wire form null / 0 / 1.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a {
	case Left:
		return []byte("0"), nil
	case Right:
		return []byte("1"), nil
	case Unanswered:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("invalid answer value %d", int8(a))
	}
}

// UnmarshalJSON decodes the wire form; anything but null, 0 or 1 is rejected.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var v *int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("answer must be null, 0 or 1: %w", err)
	}
	if v == nil {
		*a = Unanswered
		return nil
	}
	switch *v {
	case 0:
		*a = Left
	case 1:
		*a = Right
	default:
		return fmt.Errorf("answer must be null, 0 or 1, got %d", *v)
	}
	return nil
}

// AnswerFromWire converts the API's 0/1 representation.
func AnswerFromWire(v int) (Answer, error) {
	switch v {
	case 0:
		return Left, nil
	case 1:
		return Right, nil
	default:
		return Unanswered, fmt.Errorf("answer must be 0 or 1, got %d", v)
	}
}
