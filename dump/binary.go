package dump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/wmentha/mruby/irep"
)

// Container layout: a 20-byte header followed by tagged sections, each
// a 4-byte tag and a big-endian uint32 length covering tag, length and
// payload. The unit tree is canonical CBOR in the IREP section; local
// names and debug lines ride in their own optional sections so tools
// can strip them without decoding the tree.
var (
	binaryMagic      = [4]byte{'R', 'I', 'T', 'E'}
	binaryVersion    = [4]byte{'0', '1', '0', '0'}
	compilerName     = [4]byte{'G', 'O', 'M', 'R'}
	compilerVersion  = [4]byte{'0', '0', '0', '0'}
	sectionIrep      = [4]byte{'I', 'R', 'E', 'P'}
	sectionLvar      = [4]byte{'L', 'V', 'A', 'R'}
	sectionDebug     = [4]byte{'D', 'B', 'G', 0}
	sectionEnd       = [4]byte{'E', 'N', 'D', 0}
	binaryHeaderSize = 20
	sectionHeaderLen = 8
)

// cborEnc is the canonical encoding mode used for all payloads, so a
// given unit always serializes to identical bytes.
var cborEnc cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: cbor enc mode: %v", err))
	}
	cborEnc = em
}

// lvarRec mirrors the local-name table of a unit tree.
type lvarRec struct {
	Names    []string  `cbor:"1,keyasint,omitempty"`
	Children []lvarRec `cbor:"2,keyasint,omitempty"`
}

// debugRec mirrors the debug info of a unit tree.
type debugRec struct {
	File     string           `cbor:"1,keyasint,omitempty"`
	Lines    []irep.LineEntry `cbor:"2,keyasint,omitempty"`
	Children []debugRec       `cbor:"3,keyasint,omitempty"`
}

// stripClone copies the tree without local names and debug info, which
// serialize in their own sections.
func stripClone(ir *irep.Irep) *irep.Irep {
	clone := *ir
	clone.LocalNames = nil
	clone.Debug = nil
	clone.Children = make([]*irep.Irep, len(ir.Children))
	for i, child := range ir.Children {
		clone.Children[i] = stripClone(child)
	}
	return &clone
}

func collectLvars(ir *irep.Irep) lvarRec {
	rec := lvarRec{Names: ir.LocalNames}
	for _, child := range ir.Children {
		rec.Children = append(rec.Children, collectLvars(child))
	}
	return rec
}

func applyLvars(ir *irep.Irep, rec lvarRec) {
	ir.LocalNames = rec.Names
	for i, child := range ir.Children {
		if i < len(rec.Children) {
			applyLvars(child, rec.Children[i])
		}
	}
}

func collectDebug(ir *irep.Irep) debugRec {
	rec := debugRec{}
	if ir.Debug != nil {
		rec.File = ir.Debug.Filename
		rec.Lines = ir.Debug.Lines
	}
	for _, child := range ir.Children {
		rec.Children = append(rec.Children, collectDebug(child))
	}
	return rec
}

func applyDebug(ir *irep.Irep, rec debugRec) {
	if rec.File != "" || len(rec.Lines) > 0 {
		ir.Debug = &irep.DebugInfo{Filename: rec.File, Lines: rec.Lines}
	}
	for i, child := range ir.Children {
		if i < len(rec.Children) {
			applyDebug(child, rec.Children[i])
		}
	}
}

func appendSection(buf *bytes.Buffer, tag [4]byte, payload []byte) {
	buf.Write(tag[:])
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(sectionHeaderLen+len(payload)))
	buf.Write(size[:])
	buf.Write(payload)
}

// binaryBytes serializes the unit to container bytes.
func binaryBytes(ir *irep.Irep, debug bool) ([]byte, error) {
	var body bytes.Buffer

	irepPayload, err := cborEnc.Marshal(stripClone(ir))
	if err != nil {
		return nil, fmt.Errorf("encoding unit: %w", err)
	}
	appendSection(&body, sectionIrep, irepPayload)

	if ir.HasLocalNames() {
		payload, err := cborEnc.Marshal(collectLvars(ir))
		if err != nil {
			return nil, fmt.Errorf("encoding local names: %w", err)
		}
		appendSection(&body, sectionLvar, payload)
	}

	if debug && ir.Debug != nil {
		payload, err := cborEnc.Marshal(collectDebug(ir))
		if err != nil {
			return nil, fmt.Errorf("encoding debug info: %w", err)
		}
		appendSection(&body, sectionDebug, payload)
	}

	appendSection(&body, sectionEnd, nil)

	out := make([]byte, 0, binaryHeaderSize+body.Len())
	out = append(out, binaryMagic[:]...)
	out = append(out, binaryVersion[:]...)
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(binaryHeaderSize+body.Len()))
	out = append(out, size[:]...)
	out = append(out, compilerName[:]...)
	out = append(out, compilerVersion[:]...)
	out = append(out, body.Bytes()...)
	return out, nil
}

func writeBinary(w io.Writer, ir *irep.Irep, debug bool) error {
	data, err := binaryBytes(ir, debug)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// ReadBinary parses a container produced by the Binary format back into
// a unit tree, merging the optional local-name and debug sections.
func ReadBinary(r io.Reader) (*irep.Irep, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	if len(data) < binaryHeaderSize {
		return nil, fmt.Errorf("container too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[0:4], binaryMagic[:]) {
		return nil, fmt.Errorf("bad container magic %q", data[0:4])
	}
	if !bytes.Equal(data[4:8], binaryVersion[:]) {
		return nil, fmt.Errorf("unsupported container version %q", data[4:8])
	}
	total := binary.BigEndian.Uint32(data[8:12])
	if int(total) > len(data) {
		return nil, fmt.Errorf("truncated container: header says %d bytes, have %d", total, len(data))
	}

	var ir *irep.Irep
	var lvars *lvarRec
	var dbg *debugRec

	pos := binaryHeaderSize
	for {
		if pos+sectionHeaderLen > len(data) {
			return nil, fmt.Errorf("truncated section header at %d", pos)
		}
		var tag [4]byte
		copy(tag[:], data[pos:pos+4])
		size := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		if size < sectionHeaderLen || pos+size > len(data) {
			return nil, fmt.Errorf("bad section size %d at %d", size, pos)
		}
		payload := data[pos+sectionHeaderLen : pos+size]

		switch tag {
		case sectionIrep:
			ir = &irep.Irep{}
			if err := cbor.Unmarshal(payload, ir); err != nil {
				return nil, fmt.Errorf("decoding unit: %w", err)
			}
		case sectionLvar:
			lvars = &lvarRec{}
			if err := cbor.Unmarshal(payload, lvars); err != nil {
				return nil, fmt.Errorf("decoding local names: %w", err)
			}
		case sectionDebug:
			dbg = &debugRec{}
			if err := cbor.Unmarshal(payload, dbg); err != nil {
				return nil, fmt.Errorf("decoding debug info: %w", err)
			}
		case sectionEnd:
			if ir == nil {
				return nil, fmt.Errorf("container has no unit section")
			}
			if lvars != nil {
				applyLvars(ir, *lvars)
			}
			if dbg != nil {
				applyDebug(ir, *dbg)
			}
			return ir, nil
		default:
			// Unknown sections are skipped for forward compatibility.
		}
		pos += size
	}
}
