package httpapi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gol43/test-moon/internal/domain"
)

func TestGenerateOrganizationsExport(t *testing.T) {
	orgs := []*domain.Organization{
		{
			ID:         1,
			Name:       "Орг1",
			Phones:     domain.Phones{"+70001112233", "+70001112234"},
			BuildingID: 7,
			Building: &domain.Building{
				ID:          7,
				Address:     "ул. Ленина, д.1",
				Coordinates: domain.Coordinates{Lat: 54.7104, Lon: 20.511},
			},
			Activities: []*domain.Activity{{ID: 1, Name: "IT Services"}, {ID: 3, Name: "Web Development"}},
		},
		{ID: 2, Name: "Bare", BuildingID: 8},
	}

	data, err := GenerateOrganizationsExport(orgs)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{organizationsSheet}, f.GetSheetList())

	rows, err := f.GetRows(organizationsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, OrganizationExportHeader, rows[0])
	assert.Equal(t, []string{
		"1", "Орг1", "+70001112233, +70001112234", "7", "ул. Ленина, д.1", "54.7104", "20.511", "IT Services, Web Development",
	}, rows[1])
	assert.Equal(t, []string{"2", "Bare", "", "8"}, rows[2])
}

func TestGenerateOrganizationsExport_Empty(t *testing.T) {
	data, err := GenerateOrganizationsExport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(organizationsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, OrganizationExportHeader, rows[0])
}
