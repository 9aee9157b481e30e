package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// EngineVersion is the version of the schema layout written to _dlt_version.
const EngineVersion = 9

type DataType string

const (
	Text      DataType = "text"
	BigInt    DataType = "bigint"
	Double    DataType = "double"
	Bool      DataType = "bool"
	Timestamp DataType = "timestamp"
	JSON      DataType = "json"
)

// Column names the pipeline adds to every row.
const (
	LoadIDColumn   = "_dlt_load_id"
	RowIDColumn    = "_dlt_id"
	ParentIDColumn = "_dlt_parent_id"
	ListIdxColumn  = "_dlt_list_idx"
	ValueColumn    = "value"
)

// System tables stored next to the data tables in the dataset.
const (
	VersionTable = "_dlt_version"
	LoadsTable   = "_dlt_loads"
	StateTable   = "_dlt_pipeline_state"
)

// Separator joins a parent path and a field name in flattened column and table names.
const Separator = "__"

type Column struct {
	Name      string   `json:"name"`
	DataType  DataType `json:"data_type"`
	Nullable  bool     `json:"nullable"`
	Unique    bool     `json:"unique,omitempty"`
	RowKey    bool     `json:"row_key,omitempty"`
	ParentKey bool     `json:"parent_key,omitempty"`
}

type Table struct {
	Name    string  `json:"name"`
	Parent  string  `json:"parent,omitempty"`
	Columns Columns `json:"columns"`
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// AddColumn appends col unless a column with the same name exists.
func (t *Table) AddColumn(col Column) *Column {
	if c := t.Column(col.Name); c != nil {
		return c
	}
	t.Columns = append(t.Columns, col)
	return &t.Columns[len(t.Columns)-1]
}

// IsSystem reports whether the table is pipeline bookkeeping rather than data.
func (t *Table) IsSystem() bool {
	return IsSystemTable(t.Name)
}

func IsSystemTable(name string) bool {
	switch name {
	case VersionTable, LoadsTable, StateTable:
		return true
	}
	return false
}

// Schema is the ordered set of tables produced by one source.
type Schema struct {
	Name          string `json:"name"`
	Version       int    `json:"version"`
	VersionHash   string `json:"version_hash"`
	EngineVersion int    `json:"engine_version"`
	Tables        Tables `json:"tables"`
}

// New returns a schema holding only the system tables.
func New(name string) *Schema {
	s := &Schema{Name: name, EngineVersion: EngineVersion}
	s.Tables = append(s.Tables, systemTables()...)
	return s
}

// Parse decodes a schema previously produced by json.Marshal.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// EnsureTable returns the named table, creating it under parent if missing.
func (s *Schema) EnsureTable(name, parent string) *Table {
	if t := s.Table(name); t != nil {
		return t
	}
	t := &Table{Name: name, Parent: parent}
	s.Tables = append(s.Tables, t)
	return t
}

func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// DataTables returns the non-system tables, every parent before its children.
func (s *Schema) DataTables() []*Table {
	var out []*Table
	seen := make(map[string]bool)
	var visit func(parent string)
	visit = func(parent string) {
		for _, t := range s.Tables {
			if t.IsSystem() || t.Parent != parent || seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, t)
			visit(t.Name)
		}
	}
	visit("")
	return out
}

// ComputeHash returns a content hash over the tables, ignoring version fields.
func (s *Schema) ComputeHash() (string, error) {
	b, err := json.Marshal(struct {
		Name   string `json:"name"`
		Tables Tables `json:"tables"`
	}{s.Name, s.Tables})
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(b)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// Bump increments Version when the content changed since the last Bump.
func (s *Schema) Bump() error {
	h, err := s.ComputeHash()
	if err != nil {
		return err
	}
	if h != s.VersionHash {
		s.Version++
		s.VersionHash = h
	}
	return nil
}

func systemTables() []*Table {
	return []*Table{
		{
			Name: VersionTable,
			Columns: Columns{
				{Name: "version", DataType: BigInt},
				{Name: "engine_version", DataType: BigInt},
				{Name: "inserted_at", DataType: Timestamp},
				{Name: "schema_name", DataType: Text},
				{Name: "version_hash", DataType: Text},
				{Name: "schema", DataType: Text},
			},
		},
		{
			Name: LoadsTable,
			Columns: Columns{
				{Name: "load_id", DataType: Text},
				{Name: "schema_name", DataType: Text, Nullable: true},
				{Name: "status", DataType: BigInt},
				{Name: "inserted_at", DataType: Timestamp},
				{Name: "schema_version_hash", DataType: Text, Nullable: true},
			},
		},
		{
			Name: StateTable,
			Columns: Columns{
				{Name: "version", DataType: BigInt},
				{Name: "engine_version", DataType: BigInt},
				{Name: "pipeline_name", DataType: Text},
				{Name: "state", DataType: Text},
				{Name: "created_at", DataType: Timestamp},
				{Name: "version_hash", DataType: Text, Nullable: true},
				{Name: LoadIDColumn, DataType: Text},
				{Name: RowIDColumn, DataType: Text, Unique: true, RowKey: true},
			},
		},
	}
}
