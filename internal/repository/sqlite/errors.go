package sqlite

import (
	"errors"
	"strings"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraintMessage returns the message of a SQLite constraint violation.
func constraintMessage(err error) (string, bool) {
	var sqliteErr *sqlitedriver.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	// the low byte is the primary result code, the rest the extended code
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	return sqliteErr.Error(), true
}

// uniqueColumn reports whether err is a UNIQUE/PRIMARY KEY violation and
// which "table.column" it names first. SQLite puts the column only in the
// message text:
//
//	constraint failed: UNIQUE constraint failed: users.username (2067)
func uniqueColumn(err error) (string, bool) {
	msg, ok := constraintMessage(err)
	if !ok {
		return "", false
	}
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ,("); j >= 0 {
		rest = rest[:j]
	}
	return rest, true
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY violation.
// SQLite does not say which reference failed.
func isForeignKeyViolation(err error) bool {
	msg, ok := constraintMessage(err)
	return ok && strings.Contains(msg, "FOREIGN KEY constraint failed")
}
