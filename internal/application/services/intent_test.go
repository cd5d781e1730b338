package services

import (
	"testing"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		query string
		want  entities.Intent
	}{
		{"123 Swan Street Richmond", entities.IntentAddress},
		{"  4/12 Lygon St", entities.IntentAddress},
		{"Swan Street", entities.IntentStreet},
		{"church st richmond", entities.IntentStreet},
		{"Richmond", entities.IntentSuburb},
		{"St Kilda", entities.IntentStreet},
		{"Carlton North", entities.IntentSuburb},
		{"Box Hill South", entities.IntentGeneral},
		{"ab", entities.IntentGeneral},
		{"åb", entities.IntentGeneral},
		{"Ōbe", entities.IntentSuburb},
		{"unit 7b", entities.IntentGeneral},
		{"   ", entities.IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.query))
		})
	}
}
