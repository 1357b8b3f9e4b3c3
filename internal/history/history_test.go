package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAssignsID(t *testing.T) {
	t.Parallel()

	s := NewStore(10)
	rec := s.Append(RunRecord{Succeeded: true, StartedAt: time.Now()})

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, s.Len())
}

func TestStoreNewestFirst(t *testing.T) {
	t.Parallel()

	s := NewStore(10)
	for i := 0; i < 3; i++ {
		s.Append(RunRecord{SourceFile: fmt.Sprintf("export_%d.sql", i)})
	}

	recent := s.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "export_2.sql", recent[0].SourceFile)
	assert.Equal(t, "export_0.sql", recent[2].SourceFile)
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Append(RunRecord{SourceFile: fmt.Sprintf("export_%d.sql", i)})
	}

	assert.Equal(t, 3, s.Len())
	recent := s.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "export_4.sql", recent[0].SourceFile)
	// export_0 and export_1 evicted.
	assert.Equal(t, "export_2.sql", recent[2].SourceFile)
}

func TestStorePage(t *testing.T) {
	t.Parallel()

	s := NewStore(10)
	for i := 0; i < 6; i++ {
		s.Append(RunRecord{SourceFile: fmt.Sprintf("export_%d.sql", i)})
	}

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantFiles []string
	}{
		{
			name:      "first page",
			limit:     2,
			offset:    0,
			wantFiles: []string{"export_5.sql", "export_4.sql"},
		},
		{
			name:      "second page",
			limit:     2,
			offset:    2,
			wantFiles: []string{"export_3.sql", "export_2.sql"},
		},
		{
			name:      "limit past end truncates",
			limit:     10,
			offset:    4,
			wantFiles: []string{"export_1.sql", "export_0.sql"},
		},
		{
			name:      "offset past end is empty",
			limit:     2,
			offset:    10,
			wantFiles: []string{},
		},
		{
			name:      "negative offset treated as zero",
			limit:     1,
			offset:    -3,
			wantFiles: []string{"export_5.sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := s.Page(tt.limit, tt.offset)
			require.Len(t, page, len(tt.wantFiles))
			for i, want := range tt.wantFiles {
				assert.Equal(t, want, page[i].SourceFile)
			}
		})
	}
}

func TestStoreDefaultCapacity(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		s.Append(RunRecord{})
	}
	assert.Equal(t, DefaultCapacity, s.Len())
}
