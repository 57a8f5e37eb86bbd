package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectMySQL is the MySQL/MariaDB dialect name.
	DialectMySQL = "mysql"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// likeEscape is the LIKE escape character. A backslash would need
// dialect-specific quoting in the ESCAPE clause.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// CaseInsensitiveLikeExpr returns a SQL expression for case-insensitive LIKE
// against a pattern built by ContainsPattern.
// column must be a trusted identifier.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if DialectName(conn) == DialectPostgres {
		return fmt.Sprintf("%s ILIKE ? ESCAPE '%s'", column, likeEscape)
	}
	return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", column, likeEscape)
}

// ContainsPattern builds a LIKE pattern matching term anywhere. Wildcards in
// term match literally.
func ContainsPattern(conn *gorm.DB, term string) string {
	if DialectName(conn) != DialectPostgres {
		term = strings.ToLower(term)
	}
	return "%" + likeEscaper.Replace(term) + "%"
}
