package schema

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// Naming turns source field names into destination identifiers (snake_case).
// MaxLength of zero means unlimited.
type Naming struct {
	MaxLength int
}

func (n Naming) Identifier(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" {
		id = "_"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return n.shorten(id)
}

// Path joins already-normalized identifiers with Separator.
func (n Naming) Path(parts ...string) string {
	return n.shorten(strings.Join(parts, Separator))
}

// TableName names the child table holding the list found at field of parent.
func (n Naming) TableName(parent, field string) string {
	return n.Path(parent, n.Identifier(field))
}

// VariantName names the column that stores values of dt that do not fit column.
func (n Naming) VariantName(column string, dt DataType) string {
	return n.Path(column, "v_"+string(dt))
}

func (n Naming) shorten(id string) string {
	if n.MaxLength <= 0 || len(id) <= n.MaxLength {
		return id
	}
	sum := blake3.Sum256([]byte(id))
	tag := hex.EncodeToString(sum[:4])
	return id[:n.MaxLength-len(tag)-1] + "_" + tag
}
