// Package mocks provides gomock implementations of the domain repositories.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain JobRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain UserRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=settings_repository_mock.go github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain SettingsRepository
