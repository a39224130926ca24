package ports_test

import (
	"testing"

	"github.com/nicetouch/dashboard/internal/mocks"
	fakes "github.com/nicetouch/dashboard/internal/mocks/auth"
	"github.com/nicetouch/dashboard/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*fakes.FakeIdentityProvider)(nil)
	var _ ports.SessionStore = (*fakes.MemorySessionStore)(nil)
	var _ ports.FederatedProvider = (*fakes.MockFederatedProvider)(nil)
	var _ ports.IdentityProvider = (*mocks.MockIdentityProvider)(nil)
	var _ ports.ProfileBackend = (*mocks.MockProfileBackend)(nil)
	var _ ports.BillingBackend = (*mocks.MockBillingBackend)(nil)
}
