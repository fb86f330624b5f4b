package tts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "It is eight o'clock", want: "it_is_eight_oclock"},
		{in: "Bonjour, il est midi.", want: "bonjour_il_est_midi"},
		{in: "Café crème à 10 heures", want: "cafe_creme_a_10_heures"},
		{in: "  spaced   out  ", want: "spaced_out"},
		{in: "日本語", wantErr: true},
		{in: "?!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FileName(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrEmptyName))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGenerator_DefaultLanguage(t *testing.T) {
	g := NewGenerator("sounds/timed", "")
	assert.Equal(t, DefaultLanguage, g.speech.Language)
	assert.Equal(t, "sounds/timed", g.speech.Folder)
}
