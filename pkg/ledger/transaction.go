package ledger

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AccountMeta names one account an instruction touches.
type AccountMeta struct { // A
	PublicKey  Address
	IsSigner   bool
	IsWritable bool
}

// Meta builds an AccountMeta.
func Meta(key Address, writable, signer bool) AccountMeta { // A
	return AccountMeta{PublicKey: key, IsWritable: writable, IsSigner: signer}
}

// Instruction is one program call.
type Instruction struct { // A
	ProgramID Address
	Accounts  []AccountMeta
	Data      []byte
}

// Message is the signed part of a transaction. Nonce distinguishes
// otherwise identical messages.
type Message struct { // A
	Nonce        uint64
	Instructions []Instruction
}

// SignaturePair binds a signature to the key that produced it.
type SignaturePair struct { // A
	PublicKey Address
	Signature solana.Signature
}

// Transaction is a message plus the signatures of its required signers.
type Transaction struct { // A
	Message    Message
	Signatures []SignaturePair
}

// NewTransaction wraps instructions in an unsigned transaction.
func NewTransaction( // A
	nonce uint64,
	instructions ...Instruction,
) *Transaction {
	return &Transaction{
		Message: Message{Nonce: nonce, Instructions: instructions},
	}
}

// Signers lists every account marked as signer, first occurrence order.
func (m Message) Signers() []Address { // A
	var out []Address
	seen := make(map[Address]struct{})
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if !meta.IsSigner {
				continue
			}
			if _, ok := seen[meta.PublicKey]; ok {
				continue
			}
			seen[meta.PublicKey] = struct{}{}
			out = append(out, meta.PublicKey)
		}
	}
	return out
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (m Message) MarshalWithEncoder(enc *bin.Encoder) error { // A
	if err := enc.WriteUint64(m.Nonce, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteLength(len(m.Instructions)); err != nil {
		return err
	}
	for _, ix := range m.Instructions {
		if err := enc.WriteBytes(ix.ProgramID.Bytes(), false); err != nil {
			return err
		}
		if err := enc.WriteLength(len(ix.Accounts)); err != nil {
			return err
		}
		for _, meta := range ix.Accounts {
			if err := enc.WriteBytes(meta.PublicKey.Bytes(), false); err != nil {
				return err
			}
			if err := enc.WriteBool(meta.IsSigner); err != nil {
				return err
			}
			if err := enc.WriteBool(meta.IsWritable); err != nil {
				return err
			}
		}
		if err := enc.WriteBytes(ix.Data, true); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (m *Message) UnmarshalWithDecoder(dec *bin.Decoder) error { // A
	nonce, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("read nonce: %w", err)
	}
	count, err := dec.ReadLength()
	if err != nil {
		return fmt.Errorf("read instruction count: %w", err)
	}
	if count > dec.Remaining() {
		return fmt.Errorf("instruction count %d exceeds input", count)
	}

	instructions := make([]Instruction, 0, count)
	for i := 0; i < count; i++ {
		var ix Instruction
		program, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return fmt.Errorf("instruction %d: read program: %w", i, err)
		}
		ix.ProgramID = solana.PublicKeyFromBytes(program)

		metas, err := dec.ReadLength()
		if err != nil {
			return fmt.Errorf("instruction %d: read account count: %w", i, err)
		}
		if metas > dec.Remaining() {
			return fmt.Errorf("instruction %d: account count %d exceeds input", i, metas)
		}
		ix.Accounts = make([]AccountMeta, 0, metas)
		for j := 0; j < metas; j++ {
			key, err := dec.ReadNBytes(solana.PublicKeyLength)
			if err != nil {
				return fmt.Errorf("instruction %d: account %d: %w", i, j, err)
			}
			signer, err := dec.ReadBool()
			if err != nil {
				return fmt.Errorf("instruction %d: account %d: %w", i, j, err)
			}
			writable, err := dec.ReadBool()
			if err != nil {
				return fmt.Errorf("instruction %d: account %d: %w", i, j, err)
			}
			ix.Accounts = append(ix.Accounts, AccountMeta{
				PublicKey:  solana.PublicKeyFromBytes(key),
				IsSigner:   signer,
				IsWritable: writable,
			})
		}

		data, err := dec.ReadByteSlice()
		if err != nil {
			return fmt.Errorf("instruction %d: read data: %w", i, err)
		}
		ix.Data = append([]byte(nil), data...)
		instructions = append(instructions, ix)
	}

	m.Nonce = nonce
	m.Instructions = instructions
	return nil
}

// Bytes is the payload every signature covers.
func (m Message) Bytes() ([]byte, error) { // A
	buf := new(bytes.Buffer)
	if err := m.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// Sign signs the message with the keys of all required signers. Keys that
// are not required signers are ignored; a missing required key is an
// error.
func (tx *Transaction) Sign(keys ...solana.PrivateKey) error { // A
	payload, err := tx.Message.Bytes()
	if err != nil {
		return err
	}

	byPublic := make(map[Address]solana.PrivateKey, len(keys))
	for _, k := range keys {
		byPublic[k.PublicKey()] = k
	}

	signers := tx.Message.Signers()
	signatures := make([]SignaturePair, 0, len(signers))
	for _, signer := range signers {
		key, ok := byPublic[signer]
		if !ok {
			return fmt.Errorf("%w: no key for %s", ErrMissingRequiredSignature, signer)
		}
		sig, err := key.Sign(payload)
		if err != nil {
			return fmt.Errorf("sign for %s: %w", signer, err)
		}
		signatures = append(signatures, SignaturePair{PublicKey: signer, Signature: sig})
	}
	tx.Signatures = signatures
	return nil
}

// VerifySignatures checks that every required signer has a valid
// signature over the message and returns the verified signer set.
func (tx *Transaction) VerifySignatures() (map[Address]bool, error) { // A
	payload, err := tx.Message.Bytes()
	if err != nil {
		return nil, err
	}

	verified := make(map[Address]bool, len(tx.Signatures))
	for _, pair := range tx.Signatures {
		if !pair.PublicKey.Verify(payload, pair.Signature) {
			return nil, fmt.Errorf("%w: %s", ErrSignatureFailure, pair.PublicKey)
		}
		verified[pair.PublicKey] = true
	}
	for _, signer := range tx.Message.Signers() {
		if !verified[signer] {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequiredSignature, signer)
		}
	}
	return verified, nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (tx Transaction) MarshalWithEncoder(enc *bin.Encoder) error { // A
	if err := tx.Message.MarshalWithEncoder(enc); err != nil {
		return err
	}
	if err := enc.WriteLength(len(tx.Signatures)); err != nil {
		return err
	}
	for _, pair := range tx.Signatures {
		if err := enc.WriteBytes(pair.PublicKey.Bytes(), false); err != nil {
			return err
		}
		if err := enc.WriteBytes(pair.Signature[:], false); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (tx *Transaction) UnmarshalWithDecoder(dec *bin.Decoder) error { // A
	if err := tx.Message.UnmarshalWithDecoder(dec); err != nil {
		return err
	}
	count, err := dec.ReadLength()
	if err != nil {
		return fmt.Errorf("read signature count: %w", err)
	}
	if count > dec.Remaining() {
		return fmt.Errorf("signature count %d exceeds input", count)
	}
	tx.Signatures = make([]SignaturePair, 0, count)
	for i := 0; i < count; i++ {
		key, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
		raw, err := dec.ReadNBytes(solana.SignatureLength)
		if err != nil {
			return fmt.Errorf("signature %d: %w", i, err)
		}
		var sig solana.Signature
		copy(sig[:], raw)
		tx.Signatures = append(tx.Signatures, SignaturePair{
			PublicKey: solana.PublicKeyFromBytes(key),
			Signature: sig,
		})
	}
	return nil
}

// Encode serializes tx for the wire.
func (tx *Transaction) Encode() ([]byte, error) { // A
	buf := new(bytes.Buffer)
	if err := tx.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrMalformedTransaction wraps any wire decoding failure.
var ErrMalformedTransaction = errors.New("malformed transaction")

// DecodeTransaction parses a wire transaction. Trailing bytes are rejected.
func DecodeTransaction(data []byte) (*Transaction, error) { // A
	tx := new(Transaction)
	dec := bin.NewBorshDecoder(data)
	if err := tx.UnmarshalWithDecoder(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	if dec.HasRemaining() {
		return nil, fmt.Errorf(
			"%w: %d trailing bytes", ErrMalformedTransaction, dec.Remaining(),
		)
	}
	return tx, nil
}
