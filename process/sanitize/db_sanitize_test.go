package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, []string{"reviews", "courses", "bootcamps", "session_tokens", "users"}, TableNames(DefaultTables))
	assert.Equal(t, []string{"users", "_tmp1"}, TableNames(" users ,, drop table x;,_tmp1,1bad"))
	assert.Empty(t, TableNames(""))
}

func TestTruncateStatement(t *testing.T) {
	assert.Equal(t, `TRUNCATE TABLE "reviews", "users" RESTART IDENTITY CASCADE`, TruncateStatement([]string{"reviews", "users"}))
}

func TestReseedAdmin_RequiresCredentials(t *testing.T) {
	assert.Error(t, reseedAdmin(nil, "", "secret123"))
	assert.Error(t, reseedAdmin(nil, "admin@example.com", ""))
}
