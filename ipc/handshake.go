package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Handshake is the two-string message the daemon dials back to a client's
// rendezvous listener with, once, to announce where it is really
// listening: first the nonce the client handed it (so the client can
// match the dial-back to its own spawn request), then the daemon's real
// listen address.
type Handshake struct {
	Nonce   string
	Address string
}

// NewNonce generates a fresh handshake nonce.
func NewNonce() string {
	return uuid.NewString()
}

// WriteHandshake writes h to w as two 2-byte-length-prefixed UTF-8
// strings, the same primitive Frame string arguments use.
func WriteHandshake(w io.Writer, h Handshake) error {
	for _, s := range []string{h.Nonce, h.Address} {
		if len(s) > maxArgLength {
			return fmt.Errorf("ipc: handshake field length %d exceeds limit %d", len(s), maxArgLength)
		}
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("ipc: write handshake field length: %w", err)
		}
		if _, err := io.WriteString(w, s); err != nil {
			return fmt.Errorf("ipc: write handshake field: %w", err)
		}
	}
	return nil
}

// ReadHandshake reads a Handshake written by WriteHandshake.
func ReadHandshake(r io.Reader) (Handshake, error) {
	nonce, err := readLengthPrefixedString(r)
	if err != nil {
		return Handshake{}, fmt.Errorf("ipc: read handshake nonce: %w", err)
	}
	addr, err := readLengthPrefixedString(r)
	if err != nil {
		return Handshake{}, fmt.Errorf("ipc: read handshake address: %w", err)
	}
	return Handshake{Nonce: nonce, Address: addr}, nil
}

func readLengthPrefixedString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if int(n) > maxArgLength {
		return "", fmt.Errorf("ipc: length %d exceeds limit %d", n, maxArgLength)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
