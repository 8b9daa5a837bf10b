// Package instruction encodes the operations of the JSON metadata program
// and builds ready-to-sign ledger instructions for them.
//
// Wire format: one tag byte followed by the Borsh-encoded arguments.
// Strings are a u32 little-endian length plus UTF-8 bytes, addresses are
// 32 raw bytes.
package instruction

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
)

// Kind is the tag that selects an operation.
type Kind uint8

const (
	KindInitialize Kind = iota
	KindClose
	KindSetValue
	KindAppendValue
	KindAddAuthority
	KindRemoveAuthority
)

var kindNames = [...]string{
	KindInitialize:      "Initialize",
	KindClose:           "Close",
	KindSetValue:        "SetValue",
	KindAppendValue:     "AppendValue",
	KindAddAuthority:    "AddAuthority",
	KindRemoveAuthority: "RemoveAuthority",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var (
	ErrEmpty          = errors.New("instruction: empty data")
	ErrUnknownKind    = errors.New("instruction: unknown kind")
	ErrTrailingBytes  = errors.New("instruction: trailing bytes")
	ErrInvalidPayload = errors.New("instruction: invalid payload")
)

// Args is the decoded payload of one operation.
type Args interface {
	Kind() Kind
	encode(enc *bin.Encoder) error
}

type Initialize struct{}

type Close struct{}

// SetValue merges Value, a JSON document, into the stored JSON.
type SetValue struct {
	Value string
}

// AppendValue behaves exactly like SetValue.
type AppendValue struct {
	Value string
}

type AddAuthority struct {
	NewAuthority address.Address
}

type RemoveAuthority struct {
	Authority address.Address
}

func (Initialize) Kind() Kind      { return KindInitialize }
func (Close) Kind() Kind           { return KindClose }
func (SetValue) Kind() Kind        { return KindSetValue }
func (AppendValue) Kind() Kind     { return KindAppendValue }
func (AddAuthority) Kind() Kind    { return KindAddAuthority }
func (RemoveAuthority) Kind() Kind { return KindRemoveAuthority }

func (Initialize) encode(*bin.Encoder) error { return nil }
func (Close) encode(*bin.Encoder) error      { return nil }

func (a SetValue) encode(enc *bin.Encoder) error {
	return enc.WriteString(a.Value)
}

func (a AppendValue) encode(enc *bin.Encoder) error {
	return enc.WriteString(a.Value)
}

func (a AddAuthority) encode(enc *bin.Encoder) error {
	return enc.WriteBytes(a.NewAuthority.Bytes(), false)
}

func (a RemoveAuthority) encode(enc *bin.Encoder) error {
	return enc.WriteBytes(a.Authority.Bytes(), false)
}

// Encode serializes args with its tag.
func Encode(args Args) ([]byte, error) { // A
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(args.Kind())); err != nil {
		return nil, err
	}
	if err := args.encode(enc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", args.Kind(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses instruction data. Every byte must be consumed.
func Decode(data []byte) (Args, error) { // A
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	dec := bin.NewBorshDecoder(data)
	tag, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}

	var args Args
	switch Kind(tag) {
	case KindInitialize:
		args = Initialize{}
	case KindClose:
		args = Close{}
	case KindSetValue:
		value, err := readText(dec)
		if err != nil {
			return nil, err
		}
		args = SetValue{Value: value}
	case KindAppendValue:
		value, err := readText(dec)
		if err != nil {
			return nil, err
		}
		args = AppendValue{Value: value}
	case KindAddAuthority:
		key, err := readAddress(dec)
		if err != nil {
			return nil, err
		}
		args = AddAuthority{NewAuthority: key}
	case KindRemoveAuthority:
		key, err := readAddress(dec)
		if err != nil {
			return nil, err
		}
		args = RemoveAuthority{Authority: key}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, tag)
	}

	if dec.HasRemaining() {
		return nil, fmt.Errorf(
			"%w: %d after %s", ErrTrailingBytes, dec.Remaining(), Kind(tag),
		)
	}
	return args, nil
}

func readText(dec *bin.Decoder) (string, error) {
	raw, err := dec.ReadByteSlice()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: value is not utf-8", ErrInvalidPayload)
	}
	return string(raw), nil
}

func readAddress(dec *bin.Decoder) (address.Address, error) {
	raw, err := dec.ReadNBytes(address.Length)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return address.FromBytes(raw)
}
