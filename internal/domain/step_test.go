package domain_test

import (
	"testing"

	"brokerage-onboarding-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepSequence(t *testing.T) {
	t.Run("Default sequence follows the KYC order", func(t *testing.T) {
		seq := domain.DefaultStepSequence()

		assert.Equal(t, 6, seq.Len())
		assert.Equal(t, domain.StepSignin, seq.First())
		assert.Equal(t, domain.StepCompletion, seq.Last())
		assert.Equal(t, 3, seq.IndexOf(domain.StepBank))
		assert.Equal(t, -1, seq.IndexOf("ipv"))
	})

	t.Run("Next returns the following step and false after the last", func(t *testing.T) {
		seq := domain.DefaultStepSequence()

		next, ok := seq.Next(domain.StepNomineePOA)
		assert.True(t, ok)
		assert.Equal(t, domain.StepBank, next)

		_, ok = seq.Next(domain.StepCompletion)
		assert.False(t, ok)

		_, ok = seq.Next("ipv")
		assert.False(t, ok)
	})

	t.Run("Before lists the strictly earlier steps", func(t *testing.T) {
		seq := domain.MustStepSequence("A", "B", "C")

		assert.Empty(t, seq.Before("A"))
		assert.Equal(t, []domain.StepID{"A", "B"}, seq.Before("C"))
		assert.Empty(t, seq.Before("Z"))
	})

	t.Run("Steps returns a copy", func(t *testing.T) {
		seq := domain.MustStepSequence("A", "B")
		steps := seq.Steps()
		steps[0] = "Z"

		assert.Equal(t, domain.StepID("A"), seq.First())
	})

	t.Run("Should reject empty, blank and duplicate sequences", func(t *testing.T) {
		_, err := domain.NewStepSequence()
		assert.ErrorIs(t, err, domain.ErrEmptySequence)

		_, err = domain.NewStepSequence("A", " ")
		assert.Error(t, err)

		_, err = domain.NewStepSequence("A", "B", "A")
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("Should reject steps that would break storage keys", func(t *testing.T) {
		_, err := domain.NewStepSequence("signin", "kyc_step_data:bank")
		assert.ErrorContains(t, err, "must not contain")

		_, err = domain.ParseStepSequence("signin,bank/../exchange")
		assert.ErrorContains(t, err, "must not contain")
	})

	t.Run("ParseStepSequence trims and skips blanks", func(t *testing.T) {
		seq, err := domain.ParseStepSequence(" signin, bank ,,completion ")
		require.NoError(t, err)
		assert.Equal(t, []domain.StepID{"signin", "bank", "completion"}, seq.Steps())

		_, err = domain.ParseStepSequence(" , ")
		assert.ErrorIs(t, err, domain.ErrEmptySequence)
	})
}

func TestStepStatusTransitions(t *testing.T) {
	allowed := map[domain.StepStatus][]domain.StepStatus{
		domain.StatusNotStarted: {domain.StatusInProgress},
		domain.StatusInProgress: {domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled},
		domain.StatusFailed:     {domain.StatusNotStarted},
		domain.StatusCancelled:  {domain.StatusNotStarted},
	}

	for _, from := range domain.ValidStepStatuses() {
		for _, to := range domain.ValidStepStatuses() {
			want := from == to
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, domain.StatusFailed.IsValid())
	assert.False(t, domain.StepStatus("done").IsValid())
}
