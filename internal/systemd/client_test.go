package systemd

import "testing"

func TestUnitStateIsRunning(t *testing.T) {
	cases := []struct {
		name  string
		state UnitState
		want  bool
	}{
		{"active running", UnitState{ActiveState: "active", SubState: "running"}, true},
		{"active active", UnitState{ActiveState: "active", SubState: "active"}, true},
		{"active exited", UnitState{ActiveState: "active", SubState: "exited"}, false},
		{"inactive dead", UnitState{ActiveState: "inactive", SubState: "dead"}, false},
		{"failed", UnitState{ActiveState: "failed", SubState: "failed"}, false},
		{"zero value", UnitState{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.state.IsRunning(); got != tc.want {
				t.Errorf("IsRunning() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestJobResultDone(t *testing.T) {
	if JobDone != "done" {
		t.Fatalf("JobDone = %q, want %q", JobDone, "done")
	}
}
