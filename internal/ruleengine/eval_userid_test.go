package ruleengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDEvaluator_Eval(t *testing.T) {
	t.Parallel()

	set := map[string]struct{}{"user-1": {}, "user-2": {}}

	tests := []struct {
		name    string
		data    any
		ctx     Context
		want    bool
		wantErr bool
	}{
		{name: "Should match user in set", data: set, ctx: Context{UserID: "user-1"}, want: true},
		{name: "Should not match user outside set", data: set, ctx: Context{UserID: "user-3"}, want: false},
		{name: "Should not match without userId", data: set, ctx: Context{}, want: false},
		{name: "Should be case-sensitive", data: set, ctx: Context{UserID: "USER-1"}, want: false},
		{name: "Should error on invalid data type", data: []string{"user-1"}, ctx: Context{UserID: "user-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			evaluator := &UserIDEvaluator{}

			got, err := evaluator.Eval(tt.data, EvaluationInput{Context: tt.ctx})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostnameEvaluator_Eval(t *testing.T) {
	t.Parallel()

	set := map[string]struct{}{"web-1.example.com": {}}
	evaluator := &HostnameEvaluator{}

	got, err := evaluator.Eval(set, EvaluationInput{Context: Context{Properties: map[string]string{"hostname": "WEB-1.example.com"}}})
	require.NoError(t, err)
	assert.True(t, got, "hostnames compare case-insensitively")

	got, err = evaluator.Eval(set, EvaluationInput{Context: Context{}})
	require.NoError(t, err)
	assert.False(t, got)
}
