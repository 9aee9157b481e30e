package normalize

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"olpipeline/internal/schema"

	"github.com/zeebo/blake3"
)

// Normalizer flattens semi-structured records into a root table and child tables,
// growing the schema as new fields appear.
type Normalizer struct {
	naming      schema.Naming
	schema      *schema.Schema
	scalarLists map[string]bool
}

func New(s *schema.Schema, naming schema.Naming) *Normalizer {
	return &Normalizer{naming: naming, schema: s, scalarLists: map[string]bool{}}
}

type pendingList struct {
	path  string
	items []any
}

// Normalize turns records into rows of table (the root) and its child tables.
// Row ids are derived from loadID so a package is reproducible for the same input.
func (n *Normalizer) Normalize(loadID, table string, records []map[string]any) (*Package, error) {
	root := n.naming.Identifier(table)
	pkg := &Package{LoadID: loadID, Schema: n.schema}

	for i, rec := range records {
		rowID := RowID(loadID, root, strconv.Itoa(i))
		keys := Row{
			schema.LoadIDColumn: loadID,
			schema.RowIDColumn:  rowID,
		}
		if err := n.normalizeRow(pkg, root, "", rec, keys); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	// A list of nulls still gets its value column.
	for _, name := range n.schema.TableNames() {
		if n.scalarLists[name] {
			n.schema.Table(name).AddColumn(schema.Column{Name: schema.ValueColumn, DataType: schema.Text, Nullable: true})
		}
	}

	if err := n.schema.Bump(); err != nil {
		return nil, err
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (n *Normalizer) normalizeRow(pkg *Package, table, parent string, obj map[string]any, keys Row) error {
	tbl := n.schema.EnsureTable(table, parent)
	row := Row{}
	var lists []pendingList

	var flatten func(prefix string, obj map[string]any) error
	flatten = func(prefix string, obj map[string]any) error {
		for _, k := range sortedKeys(obj) {
			name := n.naming.Identifier(k)
			if prefix != "" {
				name = n.naming.Path(prefix, name)
			}
			switch v := obj[k].(type) {
			case nil:
			case map[string]any:
				if err := flatten(name, v); err != nil {
					return err
				}
			case []any:
				lists = append(lists, pendingList{path: name, items: v})
			default:
				if err := n.place(tbl, row, name, v); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := flatten("", obj); err != nil {
		return err
	}

	n.addKeyColumns(tbl)
	for k, v := range keys {
		row[k] = v
	}
	pkg.appendRow(table, row)

	parentID := keys[schema.RowIDColumn].(string)
	for _, l := range lists {
		childTable := n.naming.TableName(table, l.path)
		for i, item := range l.items {
			childKeys := Row{
				schema.ParentIDColumn: parentID,
				schema.ListIdxColumn:  int64(i),
				schema.RowIDColumn:    RowID(parentID, childTable, strconv.Itoa(i)),
			}
			var obj map[string]any
			switch v := item.(type) {
			case map[string]any:
				obj = v
			default:
				obj = map[string]any{schema.ValueColumn: v}
				n.scalarLists[childTable] = true
			}
			if err := n.normalizeRow(pkg, childTable, table, obj, childKeys); err != nil {
				return fmt.Errorf("%s[%d]: %w", l.path, i, err)
			}
		}
	}
	return nil
}

func (n *Normalizer) addKeyColumns(tbl *schema.Table) {
	if tbl.Parent == "" {
		tbl.AddColumn(schema.Column{Name: schema.LoadIDColumn, DataType: schema.Text})
	} else {
		tbl.AddColumn(schema.Column{Name: schema.ParentIDColumn, DataType: schema.Text, ParentKey: true})
		tbl.AddColumn(schema.Column{Name: schema.ListIdxColumn, DataType: schema.BigInt})
	}
	tbl.AddColumn(schema.Column{Name: schema.RowIDColumn, DataType: schema.Text, Unique: true, RowKey: true})
}

// place stores v under name, widening bigint to double and routing other
// type conflicts into a variant column.
func (n *Normalizer) place(tbl *schema.Table, row Row, name string, v any) error {
	val, dt, err := coerce(v)
	if err != nil {
		return fmt.Errorf("column %s: %w", name, err)
	}
	col := tbl.Column(name)
	switch {
	case col == nil:
		tbl.AddColumn(schema.Column{Name: name, DataType: dt, Nullable: true})
		row[name] = val
	case col.DataType == dt:
		row[name] = val
	case col.DataType == schema.BigInt && dt == schema.Double:
		col.DataType = schema.Double
		row[name] = val
	case col.DataType == schema.Double && dt == schema.BigInt:
		row[name] = float64(val.(int64))
	default:
		variant := n.naming.VariantName(name, dt)
		tbl.AddColumn(schema.Column{Name: variant, DataType: dt, Nullable: true})
		row[variant] = val
	}
	return nil
}

func coerce(v any) (any, schema.DataType, error) {
	switch x := v.(type) {
	case string:
		return x, schema.Text, nil
	case bool:
		return x, schema.Bool, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, schema.BigInt, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, "", fmt.Errorf("invalid number %q: %w", x, err)
		}
		return f, schema.Double, nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), schema.BigInt, nil
		}
		return x, schema.Double, nil
	case int:
		return int64(x), schema.BigInt, nil
	case int64:
		return x, schema.BigInt, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, "", fmt.Errorf("unsupported value %T: %w", v, err)
		}
		return string(b), schema.JSON, nil
	}
}

// RowID derives a 14 character id from parts.
func RowID(parts ...string) string {
	h := blake3.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))[:14]
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
