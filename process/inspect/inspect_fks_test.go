package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissing(t *testing.T) {
	cascade := "FOREIGN KEY (user_id) REFERENCES users(id) ON UPDATE CASCADE ON DELETE CASCADE"
	var found []ForeignKey
	for _, e := range Expected {
		found = append(found, ForeignKey{Table: e.Table, Column: e.Column, RefTable: e.RefTable, Definition: cascade})
	}
	assert.Empty(t, Missing(found))

	found[0].Definition = "FOREIGN KEY (user_id) REFERENCES users(id)"
	found = found[:len(found)-1]
	missing := Missing(found)
	assert.Equal(t, []ForeignKey{Expected[0], Expected[len(Expected)-1]}, missing)
}

func TestRunInspectFKs_RequiresDSN(t *testing.T) {
	_, err := RunInspectFKs(nil, "")
	assert.Error(t, err)
}
