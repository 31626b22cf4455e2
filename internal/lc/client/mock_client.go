package client

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SetToken(token string) {
	m.Called(token)
}

func (m *MockClient) Upload(ctx context.Context, filePath, materialID string, progress io.Writer) (*UploadResponse, error) {
	args := m.Called(ctx, filePath, materialID, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UploadResponse), args.Error(1)
}

func (m *MockClient) Status(ctx context.Context, videoID string) (*Progress, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Progress), args.Error(1)
}

func (m *MockClient) Watch(ctx context.Context, videoID string, fn func(Progress)) (*Progress, error) {
	args := m.Called(ctx, videoID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Progress), args.Error(1)
}

func (m *MockClient) StreamURL(videoID, quality string) string {
	return m.Called(videoID, quality).String(0)
}

func (m *MockClient) DeleteVideo(ctx context.Context, videoID string) error {
	return m.Called(ctx, videoID).Error(0)
}

func (m *MockClient) EnrollmentCompleted(ctx context.Context, secret string, body EnrollmentCompleted) (*WebhookResponse, error) {
	args := m.Called(ctx, secret, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WebhookResponse), args.Error(1)
}

var _ ClientInterface = (*MockClient)(nil)
