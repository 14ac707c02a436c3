package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_JoinWithAliases(t *testing.T) {
	ref := Extract("SELECT u.id, name FROM users u JOIN orders o ON u.id=o.user_id", KindSelect)

	assert.Equal(t, []TableRef{
		{Name: "users", Alias: "u"},
		{Name: "orders", Alias: "o"},
	}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "users"},
		{Name: "name", Ambiguous: true},
		{Name: "user_id", Table: "orders"},
	}, ref.Columns)
}

func TestExtract_Insert(t *testing.T) {
	ref := Extract("INSERT INTO app.users (id, name) VALUES (?, ?)", KindInsert)

	assert.Equal(t, []TableRef{{Name: "users", Schema: "app"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "users"},
		{Name: "name", Table: "users"},
	}, ref.Columns)
}

func TestExtract_InsertSelect(t *testing.T) {
	ref := Extract("INSERT INTO archive (id) SELECT id FROM orders WHERE status = 'done'", KindInsert)

	assert.Equal(t, []TableRef{{Name: "archive"}, {Name: "orders"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "archive"},
		{Name: "id", Table: "orders"},
		{Name: "status", Table: "orders"},
	}, ref.Columns)
}

func TestExtract_Update(t *testing.T) {
	ref := Extract("UPDATE users SET name = ?, email = lower(?) WHERE id = ?", KindUpdate)

	assert.Equal(t, []TableRef{{Name: "users"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "name", Table: "users"},
		{Name: "email", Table: "users"},
		{Name: "id", Table: "users"},
	}, ref.Columns)
}

func TestExtract_UpdateAliasTarget(t *testing.T) {
	ref := Extract("UPDATE u SET u.active = 0 FROM users u WHERE u.id = ?", KindUpdate)

	assert.Equal(t, []TableRef{{Name: "users", Alias: "u"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "active", Table: "users"},
		{Name: "id", Table: "users"},
	}, ref.Columns)
}

func TestExtract_Delete(t *testing.T) {
	ref := Extract("DELETE FROM orders WHERE user_id = ?", KindDelete)

	assert.Equal(t, []TableRef{{Name: "orders"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{{Name: "user_id", Table: "orders"}}, ref.Columns)
}

func TestExtract_SubqueryScopes(t *testing.T) {
	ref := Extract("SELECT name FROM users WHERE id IN (SELECT user_id FROM orders WHERE total > 100)", KindSelect)

	assert.Equal(t, []TableRef{{Name: "users"}, {Name: "orders"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "name", Table: "users"},
		{Name: "id", Table: "users"},
		{Name: "user_id", Table: "orders"},
		{Name: "total", Table: "orders"},
	}, ref.Columns)
}

func TestExtract_CorrelatedSubquery(t *testing.T) {
	ref := Extract("SELECT u.name FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)", KindSelect)

	assert.Equal(t, []ColumnRef{
		{Name: "name", Table: "users"},
		{Name: "user_id", Table: "orders"},
		{Name: "id", Table: "users"},
	}, ref.Columns)
}

func TestExtract_DerivedTable(t *testing.T) {
	ref := Extract("SELECT d.total FROM (SELECT SUM(amount) AS total FROM payments) d", KindSelect)

	assert.Equal(t, []TableRef{{Name: "payments"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "total", Ambiguous: true},
		{Name: "amount", Table: "payments"},
	}, ref.Columns)
}

func TestExtract_CTE(t *testing.T) {
	ref := Extract("WITH recent AS (SELECT id FROM orders) SELECT r.id FROM recent r", KindSelect)

	assert.Equal(t, []TableRef{{Name: "orders"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "orders"},
		{Name: "id", Ambiguous: true},
	}, ref.Columns)
}

func TestExtract_SelectListAliases(t *testing.T) {
	ref := Extract(`SELECT count(*) total, u.name AS "Name", CASE WHEN active THEN 1 ELSE 0 END flag FROM users u`, KindSelect)

	assert.Equal(t, []ColumnRef{
		{Name: "name", Table: "users"},
		{Name: "active", Table: "users"},
	}, ref.Columns)
}

func TestExtract_FunctionKeywordsIgnored(t *testing.T) {
	ref := Extract("SELECT EXTRACT(YEAR FROM created_at) FROM events", KindSelect)

	assert.Equal(t, []TableRef{{Name: "events"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{{Name: "created_at", Table: "events"}}, ref.Columns)
}

func TestExtract_QuotedIdentifiers(t *testing.T) {
	ref := Extract("SELECT [Order Id] FROM [dbo].[Orders] WHERE \"status\" = 'x'", KindSelect)

	assert.Equal(t, []TableRef{{Name: "Orders", Schema: "dbo"}}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "Order Id", Table: "Orders"},
		{Name: "status", Table: "Orders"},
	}, ref.Columns)
}

func TestExtract_CreateTable(t *testing.T) {
	ref := Extract("CREATE TABLE IF NOT EXISTS accounts (id INT PRIMARY KEY, owner_id INT REFERENCES users(id), CONSTRAINT uq UNIQUE (owner_id))", KindCreate)

	assert.Equal(t, []TableRef{
		{Name: "accounts", Object: "TABLE"},
		{Name: "users", Object: "TABLE"},
	}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "accounts"},
		{Name: "owner_id", Table: "accounts"},
		{Name: "id", Table: "users"},
	}, ref.Columns)
}

func TestExtract_CreateIndex(t *testing.T) {
	ref := Extract("CREATE UNIQUE INDEX idx_users_email ON users (email)", KindCreate)

	assert.Equal(t, []TableRef{
		{Name: "idx_users_email", Object: "INDEX"},
		{Name: "users", Object: "TABLE"},
	}, ref.Tables)
	assert.Equal(t, []ColumnRef{{Name: "email", Table: "users"}}, ref.Columns)
}

func TestExtract_CreateView(t *testing.T) {
	ref := Extract("CREATE OR REPLACE VIEW active_users AS SELECT id FROM users WHERE active = 1", KindCreate)

	assert.Equal(t, []TableRef{
		{Name: "active_users", Object: "VIEW"},
		{Name: "users"},
	}, ref.Tables)
	assert.Equal(t, []ColumnRef{
		{Name: "id", Table: "users"},
		{Name: "active", Table: "users"},
	}, ref.Columns)
}

func TestExtract_Alter(t *testing.T) {
	tests := []struct {
		sql  string
		cols []ColumnRef
	}{
		{"ALTER TABLE users ADD COLUMN last_login TIMESTAMP", []ColumnRef{{Name: "last_login", Table: "users"}}},
		{"ALTER TABLE users DROP COLUMN IF EXISTS legacy", []ColumnRef{{Name: "legacy", Table: "users"}}},
		{"ALTER TABLE users RENAME COLUMN nm TO name", []ColumnRef{{Name: "nm", Table: "users"}, {Name: "name", Table: "users"}}},
		{"ALTER TABLE users ADD CONSTRAINT pk PRIMARY KEY (id)", []ColumnRef{}},
	}
	for _, tt := range tests {
		ref := Extract(tt.sql, KindAlter)
		assert.Equal(t, TableRef{Name: "users", Object: "TABLE"}, ref.Tables[0], tt.sql)
		assert.Equal(t, tt.cols, ref.Columns, tt.sql)
	}
}

func TestExtract_Drop(t *testing.T) {
	ref := Extract("DROP TABLE IF EXISTS a, b CASCADE", KindDrop)

	assert.Equal(t, []TableRef{{Name: "a", Object: "TABLE"}, {Name: "b", Object: "TABLE"}}, ref.Tables)
	assert.Empty(t, ref.Columns)
}

func TestExtract_CommaJoin(t *testing.T) {
	ref := Extract("SELECT c.name, o.total FROM customers c, orders o WHERE c.id = o.customer_id", KindSelect)

	assert.Equal(t, []TableRef{{Name: "customers", Alias: "c"}, {Name: "orders", Alias: "o"}}, ref.Tables)
	assert.Len(t, ref.Columns, 4)
	for _, c := range ref.Columns {
		assert.False(t, c.Ambiguous, c.Name)
	}
}

func TestExtract_Other(t *testing.T) {
	ref := Extract("GRANT SELECT ON users TO reporting", KindOther)
	assert.NotNil(t, ref.Tables)
	assert.NotNil(t, ref.Columns)
}
