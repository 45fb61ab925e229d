package tts

import (
	"slices"
	"testing"
)

func TestEspeakArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "defaults",
			cfg:  Config{Rate: 150, Volume: 1.0},
			want: []string{"--stdout", "-s", "150", "-a", "100", "--", "hello"},
		},
		{
			name: "voice and quiet",
			cfg:  Config{Rate: 200, Volume: 0.1, VoiceID: "en-us"},
			want: []string{"--stdout", "-s", "200", "-a", "10", "-v", "en-us", "--", "hello"},
		},
		{
			name: "zero rate",
			cfg:  Config{Volume: 0.5},
			want: []string{"--stdout", "-s", "150", "-a", "50", "--", "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := espeakArgs(&tt.cfg, "hello")
			if !slices.Equal(got, tt.want) {
				t.Errorf("espeakArgs = %v, want %v", got, tt.want)
			}
		})
	}
}
