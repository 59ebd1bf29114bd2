package database

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Amounts are compared exactly on re-import, so the columns holding them must
// return what was written.
func TestSchema_AmountColumnsAreUnscaled(t *testing.T) {
	for _, table := range []string{"transactions", "checks"} {
		t.Run(table, func(t *testing.T) {
			block := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`).FindStringSubmatch(schema)
			require.Len(t, block, 2)

			amount := regexp.MustCompile(`(?m)^\s*amount\s+(\S+)`).FindStringSubmatch(block[1])
			require.Len(t, amount, 2)
			assert.Equal(t, "NUMERIC", amount[1])

			assert.Contains(t, schema, "ALTER TABLE "+table+" ALTER COLUMN amount TYPE NUMERIC;")
		})
	}
}

func TestSchema_MerchantAliasesAreOwned(t *testing.T) {
	assert.Regexp(t, `(?s)CREATE TABLE IF NOT EXISTS merchant_aliases \(.*owner_id\s+TEXT NOT NULL`, schema)
	assert.Contains(t, schema, "ALTER TABLE merchant_aliases ADD COLUMN IF NOT EXISTS owner_id")
}
