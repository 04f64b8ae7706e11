package saga_test

import (
	"context"
	"errors"
	"testing"

	"github.com/negativepl/checkout-gateway/pkg/saga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga_AllStepsSucceed(t *testing.T) {
	var executed []string

	s := saga.New("order").
		AddStep(saga.Step{
			Name:    "customer",
			Execute: func(ctx context.Context) error { executed = append(executed, "customer"); return nil },
		}).
		AddStep(saga.Step{
			Name:    "address",
			Execute: func(ctx context.Context) error { executed = append(executed, "address"); return nil },
		}).
		AddStep(saga.Step{
			Name:    "cart",
			Execute: func(ctx context.Context) error { executed = append(executed, "cart"); return nil },
		})

	failedStep, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", failedStep)
	assert.Equal(t, []string{"customer", "address", "cart"}, executed)
}

func TestSaga_SecondStepFails_CompensatesFirst(t *testing.T) {
	var executed []string

	s := saga.New("order").
		AddStep(saga.Step{
			Name:       "customer",
			Execute:    func(ctx context.Context) error { executed = append(executed, "exec1"); return nil },
			Compensate: func(ctx context.Context) error { executed = append(executed, "comp1"); return nil },
		}).
		AddStep(saga.Step{
			Name:    "address",
			Execute: func(ctx context.Context) error { return errors.New("address failed") },
			Compensate: func(ctx context.Context) error {
				// Must not run, the step never completed.
				executed = append(executed, "comp2")
				return nil
			},
		}).
		AddStep(saga.Step{
			Name:    "cart",
			Execute: func(ctx context.Context) error { executed = append(executed, "exec3"); return nil },
		})

	failedStep, err := s.Execute(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "address", failedStep)
	assert.Contains(t, err.Error(), "address failed")
	assert.Equal(t, []string{"exec1", "comp1"}, executed)
}

func TestSaga_ThirdStepFails_CompensatesInReverse(t *testing.T) {
	var compensated []string

	s := saga.New("order").
		AddStep(saga.Step{
			Name:       "customer",
			Execute:    func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { compensated = append(compensated, "comp1"); return nil },
		}).
		AddStep(saga.Step{
			Name:       "address",
			Execute:    func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { compensated = append(compensated, "comp2"); return nil },
		}).
		AddStep(saga.Step{
			Name:    "cart",
			Execute: func(ctx context.Context) error { return errors.New("cart failed") },
		})

	failedStep, err := s.Execute(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "cart", failedStep)
	assert.Equal(t, []string{"comp2", "comp1"}, compensated)
}

func TestSaga_NoSteps(t *testing.T) {
	s := saga.New("empty")
	failedStep, err := s.Execute(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "", failedStep)
}

func TestSaga_MultipleCompensationErrors_AllCollected(t *testing.T) {
	s := saga.New("order").
		AddStep(saga.Step{
			Name:       "customer",
			Execute:    func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { return errors.New("comp1 failed") },
		}).
		AddStep(saga.Step{
			Name:       "address",
			Execute:    func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { return errors.New("comp2 failed") },
		}).
		AddStep(saga.Step{
			Name:    "cart",
			Execute: func(ctx context.Context) error { return errors.New("cart failed") },
		})

	_, err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comp1 failed")
	assert.Contains(t, err.Error(), "comp2 failed")
}

func TestSaga_NilCompensate(t *testing.T) {
	s := saga.New("order").
		AddStep(saga.Step{
			Name:    "customer",
			Execute: func(ctx context.Context) error { return nil },
			// No compensate
		}).
		AddStep(saga.Step{
			Name:    "address",
			Execute: func(ctx context.Context) error { return errors.New("fail") },
		})

	failedStep, err := s.Execute(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "address", failedStep)
}
