package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStateClone verifies that Clone copies fields and handles nil safely.
func TestStateClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*State)(nil).Clone())

	s := &State{
		Timestamp:    time.Now().UTC().Truncate(time.Second),
		ArmingStatus: ArmedHome,
		AlarmStatus:  PendingAlarm,
		CatDetected:  true,
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)
}

// TestStateNormalize checks that restored states respect the disarmed invariant.
func TestStateNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   State
		want State
	}{
		{
			name: "disarmed alarm collapses",
			in:   State{ArmingStatus: Disarmed, AlarmStatus: Alarm},
			want: State{ArmingStatus: Disarmed, AlarmStatus: NoAlarm},
		},
		{
			name: "armed pending kept",
			in:   State{ArmingStatus: ArmedAway, AlarmStatus: PendingAlarm},
			want: State{ArmingStatus: ArmedAway, AlarmStatus: PendingAlarm},
		},
		{
			name: "garbage replaced",
			in:   State{ArmingStatus: "bogus", AlarmStatus: "bogus", CatDetected: true},
			want: State{ArmingStatus: Disarmed, AlarmStatus: NoAlarm, CatDetected: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := tc.in
			got.Normalize()
			require.Equal(t, tc.want, got)
		})
	}
}
