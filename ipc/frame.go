// Package ipc implements the lock daemon's wire protocol: a fixed binary
// framing of a request/response id, an argument count, and a sequence of
// length-prefixed UTF-8 strings.
package ipc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	maxArgs      = 1 << 16
	maxArgLength = 1<<16 - 1 // the largest length a 2-byte prefix can carry
)

// Frame is one message exchanged over the wire: a request/response
// correlation id followed by a sequence of string arguments. The first
// argument is conventionally the command or response name (CONTEXT,
// ACQUIRE, CLOSE, STOP, ERROR, ...).
type Frame struct {
	RequestID uint32
	Args      []string
}

// Command returns the first argument, or "" if the frame carries none.
func (f Frame) Command() string {
	if len(f.Args) == 0 {
		return ""
	}
	return f.Args[0]
}

// ReadFrame decodes one Frame from r, per the wire format: a 4-byte
// big-endian request id, a 4-byte big-endian argument count, then that
// many 2-byte-length-prefixed UTF-8 strings.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	requestID := binary.BigEndian.Uint32(header[0:4])
	argCount := binary.BigEndian.Uint32(header[4:8])
	if argCount > maxArgs {
		return Frame{}, fmt.Errorf("ipc: frame declares %d arguments, exceeds limit %d", argCount, maxArgs)
	}

	args := make([]string, argCount)
	var lenBuf [2]byte
	for i := range args {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Frame{}, fmt.Errorf("ipc: read argument %d length: %w", i, err)
		}
		n := binary.BigEndian.Uint16(lenBuf[:])
		if int(n) > maxArgLength {
			return Frame{}, fmt.Errorf("ipc: argument %d length %d exceeds limit %d", i, n, maxArgLength)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Frame{}, fmt.Errorf("ipc: read argument %d body: %w", i, err)
		}
		args[i] = string(buf)
	}

	return Frame{RequestID: requestID, Args: args}, nil
}

// WriteFrame encodes f to w in the wire format described by ReadFrame. It
// flushes a *bufio.Writer if w is one, so a single WriteFrame call always
// produces a complete frame on the wire even under buffering.
func WriteFrame(w io.Writer, f Frame) error {
	if len(f.Args) > maxArgs {
		return fmt.Errorf("ipc: frame has %d arguments, exceeds limit %d", len(f.Args), maxArgs)
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], f.RequestID)
	binary.BigEndian.PutUint32(header[4:8], uint32(len(f.Args)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("ipc: write frame header: %w", err)
	}

	var lenBuf [2]byte
	for i, arg := range f.Args {
		if len(arg) > maxArgLength {
			return fmt.Errorf("ipc: argument %d length %d exceeds limit %d", i, len(arg), maxArgLength)
		}
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(arg)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("ipc: write argument %d length: %w", i, err)
		}
		if _, err := io.WriteString(w, arg); err != nil {
			return fmt.Errorf("ipc: write argument %d body: %w", i, err)
		}
	}

	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
