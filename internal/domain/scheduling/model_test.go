package scheduling

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 9 * 60, false},
		{"17:30", 17*60 + 30, false},
		{"09:00:45", 9 * 60, false}, // seconds dropped
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"09:60", 0, true},
		{"nonsense", 0, true},
		{"10:00garbage", 0, true}, // trailing text must not parse
		{"10:00:00extra", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	tod := TimeOfDay(9*60 + 5)
	data, err := json.Marshal(tod)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"09:05"` {
		t.Errorf("got %s", data)
	}

	var back TimeOfDay
	if err := json.Unmarshal([]byte(`"14:30:59"`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != 14*60+30 {
		t.Errorf("got %d", back)
	}
}

func TestDateWeekday(t *testing.T) {
	d, err := ParseDate("2026-08-31")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Weekday() != "Monday" {
		t.Errorf("expected Monday, got %s", d.Weekday())
	}
	if d.String() != "2026-08-31" {
		t.Errorf("round trip: got %s", d)
	}
}

func TestDateOrdering(t *testing.T) {
	a, _ := ParseDate("2026-08-30")
	b, _ := ParseDate("2026-08-31")
	if !a.Before(b) || b.Before(a) {
		t.Error("date ordering broken")
	}
	if !a.Equal(a) {
		t.Error("date equality broken")
	}
}

func TestAvailabilityContains(t *testing.T) {
	w := &Availability{StartTime: 9 * 60, EndTime: 17 * 60}
	if !w.Contains(9 * 60) {
		t.Error("start boundary must be inclusive")
	}
	if w.Contains(17 * 60) {
		t.Error("end boundary must be exclusive")
	}
	if w.Contains(8 * 60) {
		t.Error("before window")
	}
}

func TestAppointmentOccursBefore(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.Local)

	past := &Appointment{Date: DateOf(now), Time: 11 * 60}
	if !past.OccursBefore(now) {
		t.Error("earlier same-day slot is in the past")
	}

	exact := &Appointment{Date: DateOf(now), Time: 12 * 60}
	if exact.OccursBefore(now) {
		t.Error("the current minute is not strictly past")
	}

	future := &Appointment{Date: DateOf(now.AddDate(0, 0, 1)), Time: 9 * 60}
	if future.OccursBefore(now) {
		t.Error("tomorrow is not past")
	}
}
