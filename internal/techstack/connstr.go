package techstack

import (
	"regexp"
	"strings"
)

// Database display names.
const (
	dbOracle     = "Oracle"
	dbPostgreSQL = "PostgreSQL"
	dbMySQL      = "MySQL"
	dbMariaDB    = "MariaDB"
	dbSQLServer  = "SQL Server"
	dbDB2        = "DB2"
	dbSQLite     = "SQLite"
	dbH2         = "H2"
	dbMongoDB    = "MongoDB"
)

// jdbcRe matches a JDBC URL prefix; group 1 is the subprotocol.
var jdbcRe = regexp.MustCompile(`(?i)\bjdbc:(oracle|postgresql|mysql|mariadb|sqlserver|jtds:sqlserver|db2|sqlite|h2):`)

// providerHints map ADO.NET provider and package names to databases.
// Matching is by lower-case substring, first hit wins.
var providerHints = []struct {
	needle string
	db     string
}{
	{"npgsql", dbPostgreSQL},
	{"postgres", dbPostgreSQL},
	{"oracle", dbOracle},
	{"mysql", dbMySQL},
	{"mariadb", dbMariaDB},
	{"sqlclient", dbSQLServer},
	{"sqlserver", dbSQLServer},
	{"db2", dbDB2},
	{"sqlite", dbSQLite},
}

// databaseFromURL names the database a JDBC URL or ADO.NET connection
// string points at, or "".
func databaseFromURL(conn string) string {
	if m := jdbcRe.FindStringSubmatch(conn); m != nil {
		switch strings.ToLower(m[1]) {
		case "oracle":
			return dbOracle
		case "postgresql":
			return dbPostgreSQL
		case "mysql":
			return dbMySQL
		case "mariadb":
			return dbMariaDB
		case "sqlserver", "jtds:sqlserver":
			return dbSQLServer
		case "db2":
			return dbDB2
		case "sqlite":
			return dbSQLite
		case "h2":
			return dbH2
		}
	}

	lower := strings.ToLower(conn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return dbPostgreSQL
	case strings.HasPrefix(lower, "mysql://"):
		return dbMySQL
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return dbMongoDB
	case strings.Contains(lower, "(description=") && strings.Contains(lower, "service_name"):
		return dbOracle
	}

	kv := connKeys(lower)
	_, hasServer := kv["server"]
	_, hasSource := kv["data source"]
	_, hasCatalog := kv["initial catalog"]
	_, hasDatabase := kv["database"]
	switch {
	case hasSource && strings.HasSuffix(kv["data source"], ".db"):
		return dbSQLite
	case hasServer && kv["port"] == "5432", kv["host"] != "" && hasDatabase:
		return dbPostgreSQL
	case hasServer && kv["port"] == "3306":
		return dbMySQL
	case (hasServer || hasSource) && (hasCatalog || hasDatabase):
		return dbSQLServer
	}
	return ""
}

// connKeys splits an ADO.NET connection string into lower-case key/values.
func connKeys(conn string) map[string]string {
	kv := map[string]string{}
	for part := range strings.SplitSeq(conn, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return kv
}

// databaseFromProvider maps a provider, driver or package name to a
// database.
func databaseFromProvider(name string) string {
	lower := strings.ToLower(name)
	for _, h := range providerHints {
		if strings.Contains(lower, h.needle) {
			return h.db
		}
	}
	return ""
}

// databaseFromDialect maps a Hibernate dialect class to a database.
func databaseFromDialect(dialect string) string {
	lower := strings.ToLower(dialect)
	switch {
	case strings.Contains(lower, "oracle"):
		return dbOracle
	case strings.Contains(lower, "postgre"):
		return dbPostgreSQL
	case strings.Contains(lower, "mariadb"):
		return dbMariaDB
	case strings.Contains(lower, "mysql"):
		return dbMySQL
	case strings.Contains(lower, "sqlserver"):
		return dbSQLServer
	case strings.Contains(lower, "db2"):
		return dbDB2
	case strings.Contains(lower, "h2"):
		return dbH2
	}
	return ""
}

func addDatabase(add addFunc, name, rel string) {
	if name != "" {
		add(Technology{Name: name, Category: CategoryDatabase, EvidencePath: rel})
	}
}
