package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCronField_Wildcard(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("*", 0, 59, false, false)
	require.NoError(t, err)
	require.True(t, f.allowAny())
	for i := 0; i <= 59; i++ {
		require.True(t, f.contains(i))
	}
}

func TestParseCronField_List(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("1,3,5", 0, 10, false, false)
	require.NoError(t, err)
	for _, v := range []int{1, 3, 5} {
		require.True(t, f.contains(v))
	}
	require.False(t, f.contains(2))
}

func TestParseCronField_Range(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("2-5", 0, 10, false, false)
	require.NoError(t, err)
	for v := 2; v <= 5; v++ {
		require.True(t, f.contains(v))
	}
	require.False(t, f.contains(1))
	require.False(t, f.contains(6))
}

func TestParseCronField_Step(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("*/15", 0, 59, false, false)
	require.NoError(t, err)
	for _, v := range []int{0, 15, 30, 45} {
		require.True(t, f.contains(v))
	}
	require.False(t, f.contains(16))
}

func TestParseCronField_RangeStep(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("10-20/5", 0, 59, false, false)
	require.NoError(t, err)
	for _, v := range []int{10, 15, 20} {
		require.True(t, f.contains(v))
	}
	require.False(t, f.contains(12))
}

func TestParseCronField_RangeInvertedFails(t *testing.T) {
	t.Parallel()
	_, err := parseCronField("5-2", 0, 10, false, false)
	require.Error(t, err)
}

func TestParseCronField_StepMustBePositive(t *testing.T) {
	t.Parallel()
	_, err := parseCronField("*/0", 0, 59, false, false)
	require.Error(t, err)
	_, err = parseCronField("*/-1", 0, 59, false, false)
	require.Error(t, err)
}

func TestParseCronField_OutOfRange(t *testing.T) {
	t.Parallel()
	_, err := parseCronField("60", 0, 59, false, false)
	require.Error(t, err)
}

func TestParseCronField_QuestionOnlyWhenAllowed(t *testing.T) {
	t.Parallel()
	_, err := parseCronField("?", 0, 59, false, false)
	require.Error(t, err)

	f, err := parseCronField("?", 1, 31, true, false)
	require.NoError(t, err)
	require.True(t, f.allowAny())
}

func TestParseCronField_DayOfWeekAlias(t *testing.T) {
	t.Parallel()
	f, err := parseCronField("7", 0, 7, true, true)
	require.NoError(t, err)
	require.True(t, f.contains(0))
	require.False(t, f.contains(7))
}
