package judge

import "testing"

func TestStatusTerminal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		terminal bool
		passed   bool
	}{
		{name: "in queue", status: StatusInQueue, terminal: false, passed: false},
		{name: "processing", status: StatusProcessing, terminal: false, passed: false},
		{name: "accepted", status: StatusAccepted, terminal: true, passed: true},
		{name: "wrong answer", status: StatusWrongAnswer, terminal: true, passed: false},
		{name: "time limit exceeded", status: StatusTimeLimitExceeded, terminal: true, passed: false},
		{name: "compilation error", status: StatusCompilationError, terminal: true, passed: false},
		{name: "runtime error", status: StatusRuntimeError, terminal: true, passed: false},
		{name: "runtime error variant", status: Status(11), terminal: true, passed: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Fatalf("Terminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.Passed(); got != tt.passed {
				t.Fatalf("Passed() = %v, want %v", got, tt.passed)
			}
		})
	}
}

func TestLanguageID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		lang    string
		want    int
		wantErr bool
	}{
		{name: "python", lang: "python", want: 71},
		{name: "cpp", lang: "c++", want: 54},
		{name: "c", lang: "c", want: 50},
		{name: "java", lang: "java", want: 62},
		{name: "javascript", lang: "javascript", want: 63},
		{name: "case insensitive", lang: "Python", want: 71},
		{name: "surrounding space", lang: " java ", want: 62},
		{name: "unknown", lang: "cobol", wantErr: true},
		{name: "empty", lang: "", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := LanguageID(tt.lang)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got id %d", tt.lang, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("LanguageID(%q) = %d, want %d", tt.lang, got, tt.want)
			}
		})
	}
}
