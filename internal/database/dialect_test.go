package database

import "testing"

func TestPostgresRewriteQuery(t *testing.T) {
	dialect := NewPostgresDialect()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no placeholders",
			query:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "single placeholder",
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "multiple placeholders numbered in order",
			query:    "INSERT INTO families (name, invite_code) VALUES (?, ?)",
			expected: "INSERT INTO families (name, invite_code) VALUES ($1, $2)",
		},
		{
			name:     "question mark inside string literal untouched",
			query:    "SELECT '?' , id FROM users WHERE id = ?",
			expected: "SELECT '?' , id FROM users WHERE id = $1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dialect.RewriteQuery(tt.query); got != tt.expected {
				t.Errorf("RewriteQuery(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestSQLiteAndMySQLRewriteAreIdentity(t *testing.T) {
	query := "SELECT * FROM users WHERE id = ? AND family_id = ?"

	if got := NewSQLiteDialect().RewriteQuery(query); got != query {
		t.Errorf("sqlite rewrite changed query: %q", got)
	}
	if got := NewMySQLDialect().RewriteQuery(query); got != query {
		t.Errorf("mysql rewrite changed query: %q", got)
	}
}
