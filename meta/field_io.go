package meta

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// FieldInfo describes one node of a composite field tree.
type FieldInfo struct {
	Path         string `json:"path" msgpack:"path"`
	Type         string `json:"type" msgpack:"type"`
	Entity       string `json:"entity" msgpack:"entity"`
	EntityPath   string `json:"entity_path,omitempty" msgpack:"entity_path,omitempty"`
	RelativeName string `json:"relative_name" msgpack:"relative_name"`
}

// ListFields enumerates every node of the composite tree in pre-order.
func ListFields(cmd *CompositeMetadata) []FieldInfo {
	var out []FieldInfo
	c := NewFieldCursor(cmd.FieldTreeRoot())
	for c.Next() {
		n := c.Current()
		owner := cmd.EntityOf(n)
		out = append(out, FieldInfo{
			Path:         c.CurrentPath().String(),
			Type:         n.Type().Name(),
			Entity:       owner.Name(),
			EntityPath:   owner.EntityPath().String(),
			RelativeName: EntityRelativeFieldName(n).String(),
		})
	}
	return out
}

// WriteFieldsJSONL writes one JSON object per line.
func WriteFieldsJSONL(w io.Writer, fields []FieldInfo) error {
	enc := json.NewEncoder(w)
	for i := range fields {
		if err := enc.Encode(&fields[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFieldsJSONL reads a JSON lines stream, calling fn for each record.
func ReadFieldsJSONL(r io.Reader, fn func(FieldInfo) error) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var f FieldInfo
		if err := dec.Decode(&f); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

// WriteFieldsMsgpack writes the records as a MessagePack array.
func WriteFieldsMsgpack(w io.Writer, fields []FieldInfo) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeArrayLen(len(fields)); err != nil {
		return err
	}
	for i := range fields {
		if err := enc.Encode(&fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func ReadFieldsMsgpack(r io.Reader, fn func(FieldInfo) error) error {
	dec := msgpack.NewDecoder(r)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var f FieldInfo
		if err := dec.Decode(&f); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

var fieldsCSVHeader = []string{"path", "type", "entity", "entity_path", "relative_name"}

// WriteFieldsCSV writes a header row followed by one row per record.
func WriteFieldsCSV(w io.Writer, fields []FieldInfo) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fieldsCSVHeader); err != nil {
		return err
	}
	for _, f := range fields {
		if err := cw.Write([]string{f.Path, f.Type, f.Entity, f.EntityPath, f.RelativeName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
