package climate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantProjection(n int, v float64) Projection {
	row := func() []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	return Projection{Concentration: row(), Forcing: row(), Temperature: row()}
}

func TestRun(t *testing.T) {
	emissions := []float64{1, 2, 3}

	tests := []struct {
		name       string
		model      Model
		emissions  []float64
		wantErr    bool
		wantReason string
	}{
		{
			name: "valid projection",
			model: Func{Label: "ok", Fn: func(_ context.Context, e []float64) (Projection, error) {
				return constantProjection(len(e), 1), nil
			}},
			emissions: emissions,
		},
		{
			name: "model error is wrapped",
			model: Func{Label: "boom", Fn: func(context.Context, []float64) (Projection, error) {
				return Projection{}, errors.New("diverged")
			}},
			emissions: emissions,
			wantErr:   true,
		},
		{
			name: "short series",
			model: Func{Label: "short", Fn: func(context.Context, []float64) (Projection, error) {
				return constantProjection(2, 1), nil
			}},
			emissions:  emissions,
			wantErr:    true,
			wantReason: "concentration has 2 values, want 3",
		},
		{
			name: "NaN temperature",
			model: Func{Label: "nan", Fn: func(_ context.Context, e []float64) (Projection, error) {
				p := constantProjection(len(e), 1)
				p.Temperature[1] = math.NaN()
				return p, nil
			}},
			emissions:  emissions,
			wantErr:    true,
			wantReason: "temperature is not finite at index 1",
		},
		{
			name:       "non-finite input",
			model:      Func{Label: "never", Fn: nil},
			emissions:  []float64{1, math.Inf(1)},
			wantErr:    true,
			wantReason: "emissions input is not finite at index 1",
		},
		{
			name:       "unavailable",
			model:      Unavailable{},
			emissions:  emissions,
			wantErr:    true,
			wantReason: "no climate model configured",
		},
		{
			name:       "nil model",
			model:      nil,
			emissions:  emissions,
			wantErr:    true,
			wantReason: "no climate model configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Run(context.Background(), tt.model, tt.emissions)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, p.Forcing, len(tt.emissions))
				return
			}
			require.ErrorIs(t, err, ErrClimateModel)
			var me *ModelError
			require.ErrorAs(t, err, &me)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, me.Reason)
			}
		})
	}
}

func TestRun_DoesNotShareInput(t *testing.T) {
	emissions := []float64{1, 2}
	m := Func{Label: "mutating", Fn: func(_ context.Context, e []float64) (Projection, error) {
		e[0] = 99
		return constantProjection(len(e), 0), nil
	}}

	_, err := Run(context.Background(), m, emissions)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, emissions[0], 0)
}
