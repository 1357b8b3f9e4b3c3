package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		version     string
		commit      string
		buildDate   string
		wantVersion string
		wantDate    string
	}{
		{
			name:        "release build passes values through",
			version:     "1.4.0",
			commit:      "abcdef1234567890",
			buildDate:   "2024-03-01T10:30:00Z",
			wantVersion: "1.4.0",
			wantDate:    "2024-03-01 10:30:00 UTC",
		},
		{
			name:        "dev build derives version from commit",
			version:     "dev",
			commit:      "abcdef1234567890",
			buildDate:   unknownStr,
			wantVersion: "build-abcdef12",
			wantDate:    unknownStr,
		},
		{
			name:        "non-timestamp build date kept as is",
			version:     "1.0.0",
			commit:      "abc",
			buildDate:   "yesterday",
			wantVersion: "1.0.0",
			wantDate:    "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Contains(t, info.Platform, runtime.GOOS)
		})
	}
}
