package domain

import (
	"testing"

	"aligncore/testutil"
)

// TestDomainDoesNotImportInternal keeps the contracts in this package free of
// storage and transport implementations.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain contracts must stay implementation free")
}
