package dto_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/application/dto"
)

func TestDate_AceptaFechaCortaYRFC3339(t *testing.T) {
	var in struct {
		A dto.Date  `json:"a"`
		B dto.Date  `json:"b"`
		C *dto.Date `json:"c"`
	}
	err := json.Unmarshal([]byte(`{"a":"2024-03-31","b":"2024-03-31T15:04:05Z","c":null}`), &in)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), in.A.Time)
	assert.Equal(t, time.Date(2024, 3, 31, 15, 4, 5, 0, time.UTC), in.B.UTC())
	assert.Nil(t, in.C)
}

func TestDate_RechazaFormatoDesconocido(t *testing.T) {
	var d dto.Date
	assert.Error(t, json.Unmarshal([]byte(`"31/03/2024"`), &d))
}

func TestDate_Marshal(t *testing.T) {
	b, err := json.Marshal(dto.Date{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02T00:00:00Z"`, string(b))

	b, err = json.Marshal(dto.Date{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}
