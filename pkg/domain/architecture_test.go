package domain

import (
	"testing"

	"speciesdesk/testutil"
)

// The domain layer is shared by every store and the workflow layer; it must
// not pull in implementation packages or storage drivers.
func TestDomainImportBoundaries(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(
		testutil.InternalImportForbidden,
		testutil.StorageImportForbidden,
		testutil.TransportImportForbidden,
	), "domain must stay free of infrastructure")
}
