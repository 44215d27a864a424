package harness

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/pruefstand/internal/trial"
)

type MockMountProvisioner struct {
	mock.Mock
}

func (m *MockMountProvisioner) Provision(ctx context.Context, baseDir string, n int) error {
	args := m.Called(ctx, baseDir, n)
	return args.Error(0)
}

type MockNetworkProvisioner struct {
	mock.Mock
}

func (m *MockNetworkProvisioner) Provision(ctx context.Context, tapCount int) error {
	args := m.Called(ctx, tapCount)
	return args.Error(0)
}

type MockResultCollector struct {
	mock.Mock
}

func (m *MockResultCollector) Prepare(resultDir string) error {
	args := m.Called(resultDir)
	return args.Error(0)
}

func (m *MockResultCollector) RecordEnvironment(ctx context.Context, resultDir string) (string, error) {
	args := m.Called(ctx, resultDir)
	return args.String(0), args.Error(1)
}

type MockTrialRunner struct {
	mock.Mock
}

func (m *MockTrialRunner) RunTrials(ctx context.Context, opts trial.Options) (trial.Summary, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(trial.Summary), args.Error(1)
}

type MockRunJournal struct {
	mock.Mock
}

func (m *MockRunJournal) StartRun(id, environment string, trialCount int) error {
	args := m.Called(id, environment, trialCount)
	return args.Error(0)
}

func (m *MockRunJournal) FinishRun(id string, completed, failed int) error {
	args := m.Called(id, completed, failed)
	return args.Error(0)
}
