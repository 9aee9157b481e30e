package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Columns keeps declaration order and serializes as a JSON object keyed by column name.
type Columns []Column

func (c Columns) MarshalJSON() ([]byte, error) {
	return marshalObject(len(c), func(i int) (string, any) {
		return c[i].Name, c[i]
	})
}

func (c *Columns) UnmarshalJSON(data []byte) error {
	*c = nil
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var col Column
		if err := json.Unmarshal(raw, &col); err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		if col.Name == "" {
			col.Name = key
		}
		*c = append(*c, col)
		return nil
	})
}

// Tables keeps declaration order and serializes as a JSON object keyed by table name.
type Tables []*Table

func (t Tables) MarshalJSON() ([]byte, error) {
	return marshalObject(len(t), func(i int) (string, any) {
		return t[i].Name, t[i]
	})
}

func (t *Tables) UnmarshalJSON(data []byte) error {
	*t = nil
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		tbl := &Table{}
		if err := json.Unmarshal(raw, tbl); err != nil {
			return fmt.Errorf("table %q: %w", key, err)
		}
		if tbl.Name == "" {
			tbl.Name = key
		}
		*t = append(*t, tbl)
		return nil
	})
}

func marshalObject(n int, entry func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, value := entry(i)
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
