package session

import (
	"testing"

	"github.com/google/uuid"
)

func TestDefaultSelection(t *testing.T) {
	a := &Session{ID: uuid.New(), Name: "New Chat 2"}
	b := &Session{ID: uuid.New(), Name: "New Chat 1"}

	tests := []struct {
		name     string
		active   uuid.UUID
		sessions []*Session
		want     uuid.UUID
		wantOK   bool
	}{
		{
			name:     "existing active stays active",
			active:   b.ID,
			sessions: []*Session{a, b},
			want:     b.ID,
			wantOK:   true,
		},
		{
			name:     "vanished active falls back to most recent",
			active:   uuid.New(),
			sessions: []*Session{a, b},
			want:     a.ID,
			wantOK:   true,
		},
		{
			name:     "no active selects most recent",
			active:   uuid.Nil,
			sessions: []*Session{a, b},
			want:     a.ID,
			wantOK:   true,
		},
		{
			name:     "no sessions selects nothing",
			active:   uuid.Nil,
			sessions: nil,
			want:     uuid.Nil,
			wantOK:   false,
		},
		{
			name:     "vanished active with no sessions selects nothing",
			active:   uuid.New(),
			sessions: nil,
			want:     uuid.Nil,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultSelection(tt.active, tt.sessions)
			if ok != tt.wantOK {
				t.Fatalf("DefaultSelection() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("DefaultSelection() = %v, want %v", got, tt.want)
			}
		})
	}
}
