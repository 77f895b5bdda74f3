package prefs

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/luki/tempwatch/internal/errors"
)

// Signature starts every binary prefs file.
const Signature = "tempwatch-v01"

// minRecord is the smallest binary record: two empty strings, colour,
// crit and the active flag.
const minRecord = 1 + 4 + 4 + 1 + 1

// Load reads the prefs file at path and reports the format it was in.
func Load(path string) (*Set, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, FormatText, errors.E(errors.Op("prefs.Load"), errors.KindNotFound, path, err)
		}
		return nil, FormatText, errors.E(errors.Op("prefs.Load"), errors.KindIO, path, err)
	}
	set, format, err := Decode(data)
	if err != nil {
		return nil, format, errors.PrefsCorrupt(path, err.Error())
	}
	return set, format, nil
}

// Save writes set to path in the given format, creating parent
// directories as needed.
func Save(path string, set *Set, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, set, format); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.E(errors.Op("prefs.Save"), errors.KindIO, path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.E(errors.Op("prefs.Save"), errors.KindIO, path, err)
	}
	return nil
}

// Decode parses data in whichever format it is in.
func Decode(data []byte) (*Set, Format, error) {
	if bytes.HasPrefix(data, []byte(Signature)) {
		set, err := decodeBinary(data[len(Signature):])
		return set, FormatBinary, err
	}
	set, err := decodeText(data)
	return set, FormatText, err
}

// Encode writes set to w.
func Encode(w io.Writer, set *Set, format Format) error {
	if format == FormatBinary {
		return encodeBinary(w, set)
	}
	return encodeText(w, set)
}

// Text layout, one sensor per line:
//
//	name<TAB>crit<TAB>colour<TAB>active<TAB>command
func decodeText(data []byte) (*Set, error) {
	set := NewSet()
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) < 4 {
			return nil, fmt.Errorf("line %d: want at least 4 tab separated fields, got %d", lineNo, len(fields))
		}
		crit, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: crit: %w", lineNo, err)
		}
		color, err := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: colour: %w", lineNo, err)
		}
		active, err := strconv.ParseBool(strings.TrimSpace(fields[3]))
		if err != nil {
			return nil, fmt.Errorf("line %d: active: %w", lineNo, err)
		}
		p := Pref{Name: fields[0], Crit: crit, Color: color, Active: active}
		if len(fields) == 5 {
			p.Command = fields[4]
		}
		set.Put(p)
	}
	return set, sc.Err()
}

func encodeText(w io.Writer, set *Set) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# tempwatch preferences")
	fmt.Fprintln(bw, "# name\tcrit\tcolour\tactive\tcommand")
	for _, p := range set.All() {
		active := 0
		if p.Active {
			active = 1
		}
		fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%s\n",
			p.Name, strconv.FormatFloat(p.Crit, 'f', -1, 64), p.Color, active, p.Command)
	}
	return bw.Flush()
}

// Binary layout after the signature, little endian: uint32 count, then per
// sensor a NUL-terminated name, uint32 colour, float32 crit, one byte
// active flag and a NUL-terminated command.
func decodeBinary(data []byte) (*Set, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("sensor count: %w", err)
	}
	if int64(count)*minRecord > int64(r.Len()) {
		return nil, fmt.Errorf("sensor count %d exceeds file size", count)
	}

	br := bufio.NewReader(r)
	set := NewSet()
	for i := uint32(0); i < count; i++ {
		name, err := readCString(br)
		if err != nil {
			return nil, fmt.Errorf("sensor %d name: %w", i, err)
		}
		var rec struct {
			Color  uint32
			Crit   float32
			Active uint8
		}
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("sensor %d: %w", i, err)
		}
		cmd, err := readCString(br)
		if err != nil {
			return nil, fmt.Errorf("sensor %d command: %w", i, err)
		}
		set.Put(Pref{
			Name:    name,
			Color:   int(min(rec.Color, MaxColor)),
			Crit:    float64(rec.Crit),
			Active:  rec.Active != 0,
			Command: cmd,
		})
	}
	return set, nil
}

func readCString(r *bufio.Reader) (string, error) {
	s, err := r.ReadString(0)
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return s[:len(s)-1], nil
}

func encodeBinary(w io.Writer, set *Set) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(Signature)
	prefs := set.All()
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(prefs))); err != nil {
		return err
	}
	for _, p := range prefs {
		if strings.IndexByte(p.Name, 0) >= 0 || strings.IndexByte(p.Command, 0) >= 0 {
			return errors.E(errors.Op("prefs.Encode"), errors.KindInvalid, fmt.Sprintf("NUL byte in pref %q", p.Name))
		}
		if math.IsNaN(p.Crit) {
			return errors.E(errors.Op("prefs.Encode"), errors.KindInvalid, fmt.Sprintf("crit of %q is NaN", p.Name))
		}
		bw.WriteString(p.Name)
		bw.WriteByte(0)
		active := uint8(0)
		if p.Active {
			active = 1
		}
		rec := struct {
			Color  uint32
			Crit   float32
			Active uint8
		}{uint32(clampColor(p.Color)), float32(p.Crit), active}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return err
		}
		bw.WriteString(p.Command)
		bw.WriteByte(0)
	}
	return bw.Flush()
}
