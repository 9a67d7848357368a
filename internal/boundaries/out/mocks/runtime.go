package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// MockContainerRuntime is a mock implementation of out.ContainerRuntime
type MockContainerRuntime struct {
	mock.Mock
}

var _ out.ContainerRuntime = (*MockContainerRuntime)(nil)

// NewMockContainerRuntime creates a mock that asserts its expectations when the test ends.
func NewMockContainerRuntime(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContainerRuntime {
	m := &MockContainerRuntime{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Inspection
func (m *MockContainerRuntime) ListContainers(ctx context.Context, all bool) ([]string, error) {
	args := m.Called(ctx, all)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockContainerRuntime) ListNetworks(ctx context.Context) ([]domain.NetworkInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NetworkInfo), args.Error(1)
}

func (m *MockContainerRuntime) ContainerPrimaryNetwork(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockContainerRuntime) ContainerExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockContainerRuntime) ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, bool, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.ContainerStatus), args.Bool(1), args.Error(2)
}

// Networks
func (m *MockContainerRuntime) EnsureNetwork(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockContainerRuntime) ConnectContainerToNetwork(ctx context.Context, name, network string) error {
	args := m.Called(ctx, name, network)
	return args.Error(0)
}

// Lifecycle
func (m *MockContainerRuntime) BuildImage(ctx context.Context, tag, buildDir string) error {
	args := m.Called(ctx, tag, buildDir)
	return args.Error(0)
}

func (m *MockContainerRuntime) RunContainer(ctx context.Context, name, image, network string, ports []uint16) error {
	args := m.Called(ctx, name, image, network, ports)
	return args.Error(0)
}

func (m *MockContainerRuntime) StopAndRemoveContainer(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// Logs
func (m *MockContainerRuntime) StreamLogs(ctx context.Context, name string, follow bool, tail int) ([]string, error) {
	args := m.Called(ctx, name, follow, tail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
