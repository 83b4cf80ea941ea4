package domain

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Outcome
	}{
		{"bare ok", "OK\r\n", OutcomeSuccess},
		{"ok after data", "+SHSTATE: 1\r\n\r\nOK\r\n", OutcomeSuccess},
		{"bare error", "ERROR\r\n", OutcomeFailure},
		{"cme error", "+CME ERROR: 30\r\n", OutcomeFailure},
		{"both tokens prefers ok", "ERROR\r\nOK\r\n", OutcomeSuccess},
		{"neither", "+CSQ: 15,99\r\n", OutcomeInconclusive},
		{"empty", "", OutcomeInconclusive},
		{"lowercase is not a token", "ok\r\n", OutcomeInconclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify([]byte(tt.in)); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeSuccess.String() != "success" ||
		OutcomeFailure.String() != "failure" ||
		OutcomeInconclusive.String() != "inconclusive" {
		t.Error("unexpected Outcome string")
	}
}

func TestFrame_CopiesData(t *testing.T) {
	src := []byte("OK\r\n")
	f := NewFrame(src)
	defer f.Release()

	src[0] = 'N'

	if f.Text() != "OK\r\n" {
		t.Errorf("Text() = %q, want OK", f.Text())
	}
	if f.Len() != 4 {
		t.Errorf("Len() = %d, want 4", f.Len())
	}
	if f.Outcome() != OutcomeSuccess {
		t.Errorf("Outcome() = %v, want success", f.Outcome())
	}
}

func TestFrame_ReleaseIdempotent(t *testing.T) {
	f := NewFrame([]byte("data"))
	f.Release()
	f.Release()

	if !f.Released() {
		t.Error("Released() = false after Release")
	}
	if f.Bytes() != nil {
		t.Error("Bytes() should be nil after Release")
	}

	var nilFrame *Frame
	nilFrame.Release()
	if nilFrame.Len() != 0 {
		t.Error("nil frame should have zero length")
	}
}
