package services

import (
	"context"
	"testing"

	"homematch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompatibilitySnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	compat := env.workflow.Compatibility

	latest, err := compat.GetLatest(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	tests := []struct {
		score int
		want  int
		level string
	}{
		{score: 20, want: 20, level: models.CompatibilityLow},
		{score: 55, want: 55, level: models.CompatibilityMedium},
		{score: 130, want: 100, level: models.CompatibilityHigh},
		{score: -4, want: 0, level: models.CompatibilityLow},
	}
	for _, tt := range tests {
		snap, err := compat.Save(ctx, "r1", models.CompatibilityScore{Score: tt.score, Comment: "ok"}, []string{"va", "vb"}, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, snap.Score)
		assert.Equal(t, tt.level, snap.Level)
	}

	latest, err = compat.GetLatest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 0, latest.Score)
	assert.Equal(t, []string{"va", "vb"}, latest.PreferenceVersionIDs)

	history, err := compat.GetHistory(ctx, "r1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 0, history[0].Score)
	assert.Equal(t, 100, history[1].Score)
}
