package log

import "testing"

func TestSilentByDefault(t *testing.T) {
	lg := New()
	if lg.enabled(LevelError) {
		t.Fatalf("freshly constructed Logger must be silent until SetLevel is called")
	}
}

func TestSetLevelGating(t *testing.T) {
	lg := New()
	lg.SetLevel(LevelWarn)

	if lg.enabled(LevelDebug) {
		t.Fatalf("LevelDebug should not be enabled when level is LevelWarn")
	}
	if !lg.enabled(LevelWarn) || !lg.enabled(LevelError) {
		t.Fatalf("LevelWarn and LevelError should be enabled when level is LevelWarn")
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	lg := New()
	lg.SetLevel(LevelDebug)
	tagged := lg.WithField("conn", "abc123")

	if len(lg.fields) != 0 {
		t.Fatalf("parent logger fields mutated: %v", lg.fields)
	}
	if tagged.fields["conn"] != "abc123" {
		t.Fatalf("tagged logger missing conn field: %v", tagged.fields)
	}
}
