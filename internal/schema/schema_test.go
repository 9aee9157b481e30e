package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaming_Identifier(t *testing.T) {
	n := Naming{}
	cases := map[string]string{
		"author_name":  "author_name",
		"numFound":     "num_found",
		"ISBN":         "isbn",
		"ebook access": "ebook_access",
		"2nd_edition":  "_2nd_edition",
		"cover-i":      "cover_i",
		"":             "_",
		"Übersetzung":  "_bersetzung",
	}
	for in, want := range cases {
		assert.Equal(t, want, n.Identifier(in), "input %q", in)
	}
}

func TestNaming_Shorten(t *testing.T) {
	n := Naming{MaxLength: 20}
	long := strings.Repeat("a", 40)

	got := n.Identifier(long)
	assert.Len(t, got, 20)
	assert.True(t, strings.HasPrefix(got, "aaaaaaaaaaa_"))
	assert.Equal(t, got, n.Identifier(long), "shortening must be stable")
	assert.NotEqual(t, got, n.Identifier(strings.Repeat("a", 41)))
}

func TestNaming_TableAndVariantNames(t *testing.T) {
	n := Naming{}
	assert.Equal(t, "books__author_name", n.TableName("books", "author_name"))
	assert.Equal(t, "books__subject_key", n.TableName("books", "subjectKey"))
	assert.Equal(t, "cover_i__v_text", n.VariantName("cover_i", Text))
}

func TestSchema_NewHasSystemTables(t *testing.T) {
	s := New("open_library")
	assert.Equal(t, []string{VersionTable, LoadsTable, StateTable}, s.TableNames())
	assert.Empty(t, s.DataTables())
}

func TestSchema_DataTablesParentFirst(t *testing.T) {
	s := New("src")
	s.EnsureTable("books__author_name", "books")
	s.EnsureTable("books", "")
	s.EnsureTable("books__isbn", "books")

	var names []string
	for _, tbl := range s.DataTables() {
		names = append(names, tbl.Name)
	}
	// children are only reachable through their parent
	assert.Equal(t, "books", names[0])
	assert.ElementsMatch(t, []string{"books", "books__author_name", "books__isbn"}, names)
}

func TestSchema_JSONKeepsOrder(t *testing.T) {
	s := New("src")
	books := s.EnsureTable("books", "")
	books.AddColumn(Column{Name: "title", DataType: Text, Nullable: true})
	books.AddColumn(Column{Name: "author_key", DataType: Text, Nullable: true})
	books.AddColumn(Column{Name: RowIDColumn, DataType: Text, Unique: true, RowKey: true})
	require.NoError(t, s.Bump())

	b, err := json.Marshal(books.Columns)
	require.NoError(t, err)
	assert.Equal(t,
		`{"title":{"name":"title","data_type":"text","nullable":true},`+
			`"author_key":{"name":"author_key","data_type":"text","nullable":true},`+
			`"_dlt_id":{"name":"_dlt_id","data_type":"text","nullable":false,"unique":true,"row_key":true}}`,
		string(b))

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, s.TableNames(), parsed.TableNames())
	assert.Equal(t, books.Columns, parsed.Table("books").Columns)
	assert.Equal(t, s.VersionHash, parsed.VersionHash)
}

func TestSchema_Bump(t *testing.T) {
	s := New("src")
	require.NoError(t, s.Bump())
	assert.Equal(t, 1, s.Version)

	require.NoError(t, s.Bump())
	assert.Equal(t, 1, s.Version, "unchanged content keeps the version")

	s.EnsureTable("books", "").AddColumn(Column{Name: "title", DataType: Text, Nullable: true})
	require.NoError(t, s.Bump())
	assert.Equal(t, 2, s.Version)
}

func TestTable_AddColumnIsIdempotent(t *testing.T) {
	tbl := &Table{Name: "books"}
	tbl.AddColumn(Column{Name: "title", DataType: Text})
	c := tbl.AddColumn(Column{Name: "title", DataType: BigInt})
	assert.Equal(t, Text, c.DataType)
	assert.Len(t, tbl.Columns, 1)
}
