package postgres

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// toText converts a domain string to a pgtype.Text.
// An empty string is stored as NULL.
func toText(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// fromText converts a pgtype.Text to a domain string.
// A NULL value is converted to "".
func fromText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
