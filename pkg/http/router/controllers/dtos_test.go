package controllers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/location"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixRequestToLocationFix(t *testing.T) {
	now := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	qualifier := location.NewQualifier(100, 0)

	testCases := []struct {
		name              string
		body              string
		expectedAccuracy  float64
		expectedSpeed     float64
		expectedQualified bool
	}{
		{
			name:              "all measurements present",
			body:              `{"lat": 0.001, "lon": 0, "speed": 15, "course": 0, "horizontal_accuracy": 5}`,
			expectedAccuracy:  5,
			expectedSpeed:     15,
			expectedQualified: true,
		},
		{
			name:              "zero accuracy is a perfect fix",
			body:              `{"lat": 0.001, "lon": 0, "speed": 0, "horizontal_accuracy": 0}`,
			expectedAccuracy:  0,
			expectedSpeed:     0,
			expectedQualified: true,
		},
		{
			name:              "missing accuracy is unknown",
			body:              `{"lat": 0.001, "lon": 0, "speed": 15}`,
			expectedAccuracy:  -1,
			expectedSpeed:     15,
			expectedQualified: false,
		},
		{
			name:              "missing speed is unknown",
			body:              `{"lat": 0.001, "lon": 0, "horizontal_accuracy": 5}`,
			expectedAccuracy:  5,
			expectedSpeed:     -1,
			expectedQualified: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := &fixRequest{}
			require.NoError(t, json.Unmarshal([]byte(tc.body), req))
			require.NoError(t, validateRequest(req))

			fix := req.ToLocationFix(now)
			assert.Equal(t, tc.expectedAccuracy, fix.HorizontalAccuracy())
			assert.Equal(t, tc.expectedSpeed, fix.Speed())
			assert.Equal(t, now, fix.Time())
			assert.Equal(t, tc.expectedQualified, qualifier.IsQualified(fix, now))
		})
	}
}

func TestFixRequestValidation(t *testing.T) {
	req := &fixRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"lat": 0, "lon": 0, "speed": 200, "horizontal_accuracy": 5}`), req))
	assert.Error(t, validateRequest(req))
}
