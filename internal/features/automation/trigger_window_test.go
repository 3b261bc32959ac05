package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriggerWindows(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []TimeWindow
		wantErr bool
	}{
		{name: "default", raw: DefaultTriggerTime, want: []TimeWindow{{540, 720}, {840, 1080}}},
		{name: "single no spaces", raw: "08:30-09:15", want: []TimeWindow{{510, 555}}},
		{name: "trailing comma", raw: "08:00-09:00,", want: []TimeWindow{{480, 540}}},
		{name: "wraps midnight", raw: "22:00-02:00", want: []TimeWindow{{1320, 120}}},
		{name: "end of day", raw: "18:00-24:00", want: []TimeWindow{{1080, 0}}},
		{name: "whole day", raw: "00:00-24:00", want: []TimeWindow{{0, 1440}}},
		{name: "single digit hour", raw: "9:00-12:00", want: []TimeWindow{{540, 720}}},
		{name: "empty", raw: "", wantErr: true},
		{name: "missing dash", raw: "09:00", wantErr: true},
		{name: "bad hour", raw: "25:00-26:00", wantErr: true},
		{name: "bad minute", raw: "09:60-10:00", wantErr: true},
		{name: "empty range", raw: "09:00-09:00", wantErr: true},
		{name: "garbage", raw: "morning", wantErr: true},
		{name: "24 as start", raw: "24:00-01:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTriggerWindows(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeWindowContains(t *testing.T) {
	day := TimeWindow{Start: 540, End: 720}
	assert.True(t, day.Contains(540))
	assert.True(t, day.Contains(719))
	assert.False(t, day.Contains(720))
	assert.False(t, day.Contains(539))

	night := TimeWindow{Start: 1320, End: 120}
	assert.True(t, night.Wraps())
	assert.True(t, night.Contains(1380))
	assert.True(t, night.Contains(0))
	assert.True(t, night.Contains(119))
	assert.False(t, night.Contains(120))
	assert.False(t, night.Contains(600))

	whole := TimeWindow{Start: 0, End: 1440}
	assert.True(t, whole.Contains(0))
	assert.True(t, whole.Contains(1439))

	assert.Equal(t, "22:00-02:00", night.String())
}
