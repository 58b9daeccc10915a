package stde

import (
	"strconv"
	"strings"
)

// SignalType is the data type of a signal. The string value is the wire tag.
type SignalType string

const (
	SignalBit      SignalType = "bit"
	SignalBitN     SignalType = "bit_n"
	SignalSigned   SignalType = "signed"
	SignalUnsigned SignalType = "unsigned"
)

// SignalDirection is the port direction of a signal.
type SignalDirection string

const (
	DirInput       SignalDirection = "input"
	DirOutput      SignalDirection = "output"
	DirInputOutput SignalDirection = "inputOutput"
)

// ParseSignalType maps a wire tag to a SignalType.
func ParseSignalType(tag string) (SignalType, error) {
	switch t := SignalType(tag); t {
	case SignalBit, SignalBitN, SignalSigned, SignalUnsigned:
		return t, nil
	}
	return "", &ValidationError{Field: "type", Value: tag, Reason: "unknown signal type"}
}

// ParseSignalDirection maps a wire tag to a SignalDirection.
func ParseSignalDirection(tag string) (SignalDirection, error) {
	switch d := SignalDirection(tag); d {
	case DirInput, DirOutput, DirInputOutput:
		return d, nil
	}
	return "", &ValidationError{Field: "io", Value: tag, Reason: "unknown signal direction"}
}

// Signal is a named, typed I/O port of a state machine.
type Signal struct {
	id        string
	typ       SignalType
	bits      int
	direction SignalDirection
	desc      string
}

// NewSignal creates a validated signal. A SignalBit is always one bit wide.
func NewSignal(id string, typ SignalType, bits int, dir SignalDirection, desc string) (*Signal, error) {
	if err := validateID("signal id", id); err != nil {
		return nil, err
	}
	if _, err := ParseSignalType(string(typ)); err != nil {
		return nil, err
	}
	if _, err := ParseSignalDirection(string(dir)); err != nil {
		return nil, err
	}
	if typ == SignalBit {
		bits = 1
	}
	if err := validateBits(bits); err != nil {
		return nil, err
	}
	return &Signal{id: id, typ: typ, bits: bits, direction: dir, desc: desc}, nil
}

func (s *Signal) ID() string                 { return s.id }
func (s *Signal) Type() SignalType           { return s.typ }
func (s *Signal) Bits() int                  { return s.bits }
func (s *Signal) Direction() SignalDirection { return s.direction }
func (s *Signal) Desc() string               { return s.desc }

// SetID renames the signal. Uniqueness within a machine is not enforced.
func (s *Signal) SetID(id string) error {
	if err := validateID("signal id", id); err != nil {
		return err
	}
	s.id = id
	return nil
}

// SetType changes the data type. Switching to SignalBit resets the width to 1.
func (s *Signal) SetType(typ SignalType) error {
	if _, err := ParseSignalType(string(typ)); err != nil {
		return err
	}
	s.typ = typ
	if typ == SignalBit {
		s.bits = 1
	}
	return nil
}

// SetBits sets the width. Widths below 1 are rejected, and a SignalBit
// only accepts 1.
func (s *Signal) SetBits(bits int) error {
	if err := validateBits(bits); err != nil {
		return err
	}
	if s.typ == SignalBit && bits != 1 {
		return &ValidationError{Field: "bits", Value: strconv.Itoa(bits), Reason: "bit signals are one bit wide"}
	}
	s.bits = bits
	return nil
}

// SetBitsString parses a width typed into a form field.
func (s *Signal) SetBitsString(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return &ValidationError{Field: "bits", Value: v, Reason: "not an integer"}
	}
	return s.SetBits(n)
}

func (s *Signal) SetDirection(dir SignalDirection) error {
	if _, err := ParseSignalDirection(string(dir)); err != nil {
		return err
	}
	s.direction = dir
	return nil
}

func (s *Signal) SetDesc(desc string) { s.desc = desc }

// Record returns the wire representation of the signal.
func (s *Signal) Record() SignalRecord {
	return SignalRecord{
		ID:   s.id,
		Type: string(s.typ),
		Bits: s.bits,
		IO:   string(s.direction),
		Desc: s.desc,
	}
}

func validateBits(bits int) error {
	if bits < 1 {
		return &ValidationError{Field: "bits", Value: strconv.Itoa(bits), Reason: "width must be a positive integer"}
	}
	return nil
}

func validateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}
