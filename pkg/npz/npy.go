package npz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const npyMagic = "\x93NUMPY"

var errBadHeader = errors.New("malformed npy header")

func writeNPY(w io.Writer, a Array) error {
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", a.DType, shapeTuple(a.Shape))
	// magic(6) + version(2) + length(2) + header + newline, aligned to 64
	pad := (64 - (10+len(header)+1)%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(a.Data)
	return err
}

func shapeTuple(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func readNPY(r io.Reader) (Array, error) {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Array{}, err
	}
	if string(prefix[:6]) != npyMagic {
		return Array{}, fmt.Errorf("%w: bad magic", errBadHeader)
	}

	var headerLen int
	switch prefix[6] {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Array{}, err
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Array{}, err
		}
		headerLen = int(n)
	default:
		return Array{}, fmt.Errorf("%w: version %d.%d", errBadHeader, prefix[6], prefix[7])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Array{}, err
	}
	a, err := parseHeader(string(header))
	if err != nil {
		return Array{}, err
	}
	size := a.DType.ItemSize()
	if size == 0 {
		return Array{}, fmt.Errorf("%w: dtype %q", ErrUnsupported, a.DType)
	}
	a.Data = make([]byte, a.Len()*size)
	if _, err := io.ReadFull(r, a.Data); err != nil {
		return Array{}, err
	}
	return a, nil
}

func parseHeader(h string) (Array, error) {
	descr, ok := between(h, "'descr': '", "'")
	if !ok {
		return Array{}, fmt.Errorf("%w: no descr", errBadHeader)
	}
	if order, _ := between(h, "'fortran_order': ", ","); strings.TrimSpace(order) != "False" {
		return Array{}, fmt.Errorf("%w: fortran order is not supported", errBadHeader)
	}
	tuple, ok := between(h, "'shape': (", ")")
	if !ok {
		return Array{}, fmt.Errorf("%w: no shape", errBadHeader)
	}
	var shape []int
	for _, part := range strings.Split(tuple, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return Array{}, fmt.Errorf("%w: shape %q", errBadHeader, tuple)
		}
		shape = append(shape, d)
	}
	return Array{DType: DType(descr), Shape: shape}, nil
}

func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	s = s[i+len(start):]
	j := strings.Index(s, end)
	if j < 0 {
		return "", false
	}
	return s[:j], true
}
