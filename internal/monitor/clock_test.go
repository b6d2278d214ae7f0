package monitor

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "Hours minutes seconds", input: "00:05:30", want: 330},
		{name: "Full length", input: "01:45:00", want: 6300},
		{name: "Minutes and seconds", input: "45:00", want: 2700},
		{name: "Seconds only", input: "42", want: 42},
		{name: "Surrounding whitespace", input: " 00:00:07 ", want: 7},
		{name: "Empty", input: "", wantErr: true},
		{name: "Garbage", input: "ab:cd", wantErr: true},
		{name: "Negative field", input: "00:-1:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseClock(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	for _, secs := range []int{0, 59, 330, 2700, 6300, 36000} {
		text := FormatClock(secs)
		back, err := ParseClock(text)
		if err != nil {
			t.Fatalf("FormatClock(%d) = %q not parseable: %v", secs, text, err)
		}
		if back != secs {
			t.Errorf("ParseClock(FormatClock(%d)) = %d", secs, back)
		}
	}

	if got := FormatClock(330); got != "00:05:30" {
		t.Errorf("FormatClock(330) = %q, want 00:05:30", got)
	}
	if got := FormatClock(-5); got != "00:00:00" {
		t.Errorf("FormatClock(-5) = %q, want 00:00:00", got)
	}
}
