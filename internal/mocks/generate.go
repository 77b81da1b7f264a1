// Package mocks provides gomock implementations of the repository and port
// interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().FindByEmail(gomock.Any(), "a@example.org").Return(nil, nil)
package mocks

// Ports consumed by the auth, rate limit and complaint services.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=credential_store_mock.go github.com/civicline/civicline-api/internal/ports CredentialStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_admin_store_mock.go github.com/civicline/civicline-api/internal/ports AccountAdminStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=password_hasher_mock.go github.com/civicline/civicline-api/internal/ports PasswordHasher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_codec_mock.go github.com/civicline/civicline-api/internal/ports TokenCodec
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ratelimit_store_mock.go github.com/civicline/civicline-api/internal/ports RateLimitStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_publisher_mock.go github.com/civicline/civicline-api/internal/ports EventPublisher

// ComplaintRepository: Create, GetByID, List, Count, UpdateStatus, Assign
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=complaint_repository_mock.go github.com/civicline/civicline-api/internal/core ComplaintRepository
