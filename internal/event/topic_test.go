package event

import "testing"

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		topic   Topic
		pattern Topic
		want    bool
	}{
		{"console.opened", "console.opened", true},
		{"console.opened", "console.closed", false},
		{"console.version.saved", "console.*.saved", true},
		{"console.version.saved", "console.*", false},
		{"console.version.saved", "console.**", true},
		{"console.opened", "console.**", true},
		{"console", "console.**", true},
		{"config.reloaded", "console.**", false},
		{"console.preview.shown", "**.shown", true},
		{"console.preview.shown", "**", true},
		{"console.preview.shown", "console.preview.shown.extra", false},
	}

	for _, tt := range tests {
		if got := tt.topic.Matches(tt.pattern); got != tt.want {
			t.Errorf("%q.Matches(%q) = %v, want %v", tt.topic, tt.pattern, got, tt.want)
		}
	}
}

func TestTopicIsValid(t *testing.T) {
	tests := []struct {
		topic Topic
		want  bool
	}{
		{"console.opened", true},
		{"console", true},
		{"", false},
		{".console", false},
		{"console.", false},
		{"console..opened", false},
	}

	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.want {
			t.Errorf("%q.IsValid() = %v, want %v", tt.topic, got, tt.want)
		}
	}
}
