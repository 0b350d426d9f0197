package messages_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sterlingconwell/courier-react/internal/messages"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)},
		{in: "2024-03-01T08:30:00Z", want: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{in: "24h", want: now.Add(-24 * time.Hour)},
		{in: "-1h", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := messages.ParseSince(tt.in, now)
			if tt.wantErr {
				if !errors.Is(err, messages.ErrInvalidSince) {
					t.Fatalf("ParseSince(%q) error = %v, want ErrInvalidSince", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSince(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseSince(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
