package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		in     string
		want   string
	}{
		{DriverSQLite, "SELECT * FROM accounts WHERE id = $1 AND client_id = $2", "SELECT * FROM accounts WHERE id = ?1 AND client_id = ?2"},
		{DriverSQLite, "UPDATE accounts SET name = '$1' WHERE id = $1", "UPDATE accounts SET name = '$1' WHERE id = ?1"},
		{DriverSQLite, "SELECT 1", "SELECT 1"},
		{DriverPostgres, "SELECT * FROM accounts WHERE id = $1", "SELECT * FROM accounts WHERE id = $1"},
	}
	for _, tt := range tests {
		if got := rebind(tt.driver, tt.in); got != tt.want {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT * FROM operators WHERE email = 'ops@finnest.ai'", "SELECT * FROM operators WHERE email = '?'"},
		{"SELECT id FROM accounts WHERE id = $1 LIMIT 10", "SELECT id FROM accounts WHERE id = $1 LIMIT ?"},
		{"SELECT 'it''s'", "SELECT '?'"},
		{"SELECT\n\t\tid\n\tFROM clients", "SELECT id FROM clients"},
	}
	for _, tt := range tests {
		if got := sanitizeQuery(tt.in); got != tt.want {
			t.Errorf("sanitizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSQLVerb(t *testing.T) {
	if got := extractSQLVerb("\n\t\tinsert into clients"); got != "INSERT" {
		t.Errorf("extractSQLVerb() = %q, want INSERT", got)
	}
	if got := extractSQLVerb(""); got != "" {
		t.Errorf("extractSQLVerb(empty) = %q", got)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn"); err == nil {
		t.Error("Open() accepted an unsupported driver")
	}
}
