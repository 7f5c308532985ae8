package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Matrix", "the-matrix"},
		{"Crítica: Edición Coleccionista", "critica-edicion-coleccionista"},
		{"  --Póster  El Niño!! ", "poster-el-nino"},
		{"Blade Runner 2049", "blade-runner-2049"},
		{"日本語", "item"},
		{"", "item"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
