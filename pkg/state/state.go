// Package state holds the persisted shapes of the JSON metadata program:
// the raw JSON record and the metadata record that carries its authority
// list. Metadata records are stored in Borsh layout:
//
//	bump(1) || mutable(1) || len(authorities)(4, LE) || authorities(32 each)
package state

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
)

// NullJSON is the content of a freshly initialized JSON record.
var NullJSON = []byte("null")

// ErrTrailingBytes is returned when a metadata record has bytes left over
// after decoding.
var ErrTrailingBytes = errors.New("state: metadata record has trailing bytes")

// JsonMetadata is the metadata record bound to a JSON record through a
// derived address.
type JsonMetadata struct { // A
	Bump        uint8
	Mutable     bool
	Authorities []address.Address
}

// NewJsonMetadata returns the record written by Initialize.
func NewJsonMetadata(bump uint8, payer address.Address) JsonMetadata { // A
	return JsonMetadata{
		Bump:        bump,
		Mutable:     true,
		Authorities: []address.Address{payer},
	}
}

// SerializedLen is the exact encoded length of m.
func (m JsonMetadata) SerializedLen() int { // A
	return 1 + 1 + 4 + len(m.Authorities)*address.Length
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (m JsonMetadata) MarshalWithEncoder(enc *bin.Encoder) error { // A
	if err := enc.WriteUint8(m.Bump); err != nil {
		return err
	}
	if err := enc.WriteBool(m.Mutable); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(m.Authorities)), bin.LE); err != nil {
		return err
	}
	for _, authority := range m.Authorities {
		if err := enc.WriteBytes(authority.Bytes(), false); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (m *JsonMetadata) UnmarshalWithDecoder(dec *bin.Decoder) error { // A
	bump, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("read bump: %w", err)
	}
	mutable, err := dec.ReadByte()
	if err != nil {
		return fmt.Errorf("read mutable: %w", err)
	}
	if mutable > 1 {
		return fmt.Errorf("invalid bool value %d", mutable)
	}
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("read authority count: %w", err)
	}
	if uint64(count)*address.Length > uint64(dec.Remaining()) {
		return fmt.Errorf(
			"authority count %d exceeds remaining %d bytes",
			count, dec.Remaining(),
		)
	}

	authorities := make([]address.Address, 0, count)
	for i := uint32(0); i < count; i++ {
		raw, err := dec.ReadNBytes(address.Length)
		if err != nil {
			return fmt.Errorf("read authority %d: %w", i, err)
		}
		authority, err := address.FromBytes(raw)
		if err != nil {
			return err
		}
		authorities = append(authorities, authority)
	}

	m.Bump = bump
	m.Mutable = mutable == 1
	m.Authorities = authorities
	return nil
}

// Encode serializes m into its persisted layout.
func (m JsonMetadata) Encode() ([]byte, error) { // A
	buf := bytes.NewBuffer(make([]byte, 0, m.SerializedLen()))
	if err := m.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJsonMetadata parses a persisted metadata record. The whole buffer
// must be consumed.
func DecodeJsonMetadata(data []byte) (JsonMetadata, error) { // A
	var m JsonMetadata
	dec := bin.NewBorshDecoder(data)
	if err := m.UnmarshalWithDecoder(dec); err != nil {
		return JsonMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if dec.HasRemaining() {
		return JsonMetadata{}, fmt.Errorf(
			"%w: %d", ErrTrailingBytes, dec.Remaining(),
		)
	}
	return m, nil
}

// HasAuthority reports whether a is in the authority list.
func (m JsonMetadata) HasAuthority(a address.Address) bool { // A
	for _, authority := range m.Authorities {
		if authority.Equals(a) {
			return true
		}
	}
	return false
}

// AddAuthority appends a. Duplicates are kept.
func (m *JsonMetadata) AddAuthority(a address.Address) { // A
	m.Authorities = append(m.Authorities, a)
}

// RemoveAuthority drops every occurrence of a and returns how many were
// removed. The list may become empty.
func (m *JsonMetadata) RemoveAuthority(a address.Address) int { // A
	kept := m.Authorities[:0]
	removed := 0
	for _, authority := range m.Authorities {
		if authority.Equals(a) {
			removed++
			continue
		}
		kept = append(kept, authority)
	}
	m.Authorities = kept
	return removed
}

// Locked reports whether nobody can mutate or close the record anymore.
func (m JsonMetadata) Locked() bool { // A
	return len(m.Authorities) == 0
}
