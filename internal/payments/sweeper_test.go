package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestOverdueSweeper_SweepMarksLateInstallments(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())
	sweeper := NewOverdueSweeper(service, zap.NewNop(), OverdueSweeperConfig{})

	repo.On("MarkOverdue", mock.Anything, mock.Anything).Return(int64(3), nil)

	sweeper.Sweep(context.Background())

	repo.AssertExpectations(t)
}

func TestOverdueSweeper_SweepSurvivesRepositoryError(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())
	sweeper := NewOverdueSweeper(service, zap.NewNop(), OverdueSweeperConfig{})

	repo.On("MarkOverdue", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection reset"))

	sweeper.Sweep(context.Background())

	repo.AssertExpectations(t)
}

func TestOverdueSweeper_StartTwiceFails(t *testing.T) {
	repo := new(MockRepository)
	leaseRepo := new(MockLeaseRepository)
	service := NewService(repo, leaseRepo, zap.NewNop())
	sweeper := NewOverdueSweeper(service, zap.NewNop(), OverdueSweeperConfig{})

	assert.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	assert.Error(t, sweeper.Start())
}
