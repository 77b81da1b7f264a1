package ports_test

import (
	"testing"

	"github.com/civicline/civicline-api/internal/mocks"
	mockauth "github.com/civicline/civicline-api/internal/mocks/auth"
	"github.com/civicline/civicline-api/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.CredentialStore = (*mocks.MockCredentialStore)(nil)
	var _ ports.RateLimitStore = (*mocks.MockRateLimitStore)(nil)
	var _ ports.EventPublisher = (*mocks.MockEventPublisher)(nil)
	var _ ports.AccountAdminStore = (*mockauth.MemoryAccountStore)(nil)
	var _ ports.RateLimitStore = (*mockauth.MemoryRateLimitStore)(nil)
	var _ ports.EventPublisher = (*mockauth.RecordingPublisher)(nil)
}
