package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var may2024 = Partition{Year: 2024, Month: time.May}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestTotalsFile_CreatesHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "2024", "totals_2024_05.csv")
	tf := NewTotalsFile(path, may2024, nil)

	cols, err := tf.Columns()
	require.NoError(t, err)
	require.Nil(t, cols)

	columns := []CounterColumn{
		{IP: "10.0.0.5", Model: "ECOSYS M3860idn", Serial: "W8Q1"},
		{IP: "10.0.0.6", Model: "bizhub C558"},
	}
	row := CounterRow{
		Time: time.Date(2024, 5, 20, 6, 0, 0, 0, time.Local),
		Counters: map[string]Counter{
			"10.0.0.5": {BW: "1200"},
			"10.0.0.6": {BW: "5400", Color: "3100"},
		},
	}
	require.NoError(t, tf.Append(columns, row))

	require.Equal(t, []string{
		"May 2024,IP:,10.0.0.5,10.0.0.5,10.0.0.6,10.0.0.6",
		",Model,ECOSYS M3860idn,,bizhub C558,",
		",Serial,W8Q1,<--,,",
		"Date,Time,b/w,color,b/w,color",
		"2024-05-20,06:00:00,1200,,5400,3100",
	}, readLines(t, path))

	cols, err = tf.Columns()
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, cols)
}

func TestTotalsFile_KeepsExistingColumnOrder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "totals_2024_05.csv")
	tf := NewTotalsFile(path, may2024, nil)

	first := []CounterColumn{{IP: "10.0.0.5"}, {IP: "10.0.0.6"}}
	require.NoError(t, tf.Append(first, CounterRow{
		Time:     time.Date(2024, 5, 20, 6, 0, 0, 0, time.Local),
		Counters: map[string]Counter{"10.0.0.5": {BW: "1"}, "10.0.0.6": {BW: "2"}},
	}))

	// a later run sees the devices in another order plus a new one
	second := []CounterColumn{{IP: "10.0.0.9"}, {IP: "10.0.0.6"}, {IP: "10.0.0.5"}}
	require.NoError(t, tf.Append(second, CounterRow{
		Time:     time.Date(2024, 5, 21, 6, 0, 0, 0, time.Local),
		Counters: map[string]Counter{"10.0.0.9": {BW: "99"}, "10.0.0.6": {BW: "3"}},
	}))

	lines := readLines(t, path)
	require.Len(t, lines, 6)
	require.Equal(t, "2024-05-21,06:00:00,,,3,", lines[5])
}

func TestTotalsFile_HeaderMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "totals_2024_05.csv")
	require.NoError(t, os.WriteFile(path, []byte("something,else\n"), 0644))

	tf := NewTotalsFile(path, may2024, nil)
	err := tf.Append([]CounterColumn{{IP: "10.0.0.5"}}, CounterRow{Time: time.Now()})
	require.ErrorIs(t, err, ErrHeaderMismatch)

	backup, err := RotateFile(path)
	require.NoError(t, err)
	require.FileExists(t, backup)
	require.NoFileExists(t, path)

	require.NoError(t, tf.Append([]CounterColumn{{IP: "10.0.0.5"}}, CounterRow{Time: time.Now()}))
	cols, err := tf.Columns()
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.5"}, cols)
}

func TestTotalsFile_EmptyFileIsMismatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "totals_2024_05.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewTotalsFile(path, may2024, nil).Columns()
	require.ErrorIs(t, err, ErrHeaderMismatch)
}
