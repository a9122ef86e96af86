package zones

import (
	"path/filepath"
	"testing"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(filepath.Join("testdata", "centers.yaml"))
	require.NoError(t, err)
	return r
}

func TestLookup(t *testing.T) {
	r := loadTestRegistry(t)

	z, err := r.Lookup("northwest-avalanche-center", "snoqualmie-pass")
	require.NoError(t, err)
	assert.Equal(t, "1653", z.ZoneID)
	assert.Equal(t, "NWAC", z.CenterID)
	assert.Equal(t, "Snoqualmie Pass", z.ZoneName)
	assert.Equal(t, "Northwest Avalanche Center", z.CenterName)

	quoted, err := r.Lookup("northwest-avalanche-center", "mt-hood")
	require.NoError(t, err)
	assert.Equal(t, "1646", quoted.ZoneID)
}

func TestLookup_Unknown(t *testing.T) {
	r := loadTestRegistry(t)

	_, err := r.Lookup("no-such-center", "snoqualmie-pass")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.Lookup("northwest-avalanche-center", "no-such-zone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllZones_PreservesFileOrder(t *testing.T) {
	r := loadTestRegistry(t)

	var got []string
	for _, z := range r.AllZones() {
		got = append(got, z.CenterSlug+"/"+z.ZoneSlug)
	}
	want := []string{
		"sierra-avalanche-center/central-sierra-nevada",
		"northwest-avalanche-center/snoqualmie-pass",
		"northwest-avalanche-center/mt-hood",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AllZones() mismatch (-want +got):\n%s", diff)
	}
}

func TestCenters_ReturnsCopy(t *testing.T) {
	r := loadTestRegistry(t)

	centers := r.Centers()
	require.Len(t, centers, 2)
	centers[0].Zones[0].ZoneSlug = "mutated"

	_, err := r.Lookup("sierra-avalanche-center", "central-sierra-nevada")
	assert.NoError(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "avalanche_centers: [unclosed"},
		{"centers not mapping", "avalanche_centers:\n  - a\n  - b\n"},
		{"zone without id", "avalanche_centers:\n  c:\n    name: C\n    id: X\n    zones:\n    - name: Z\n      slug: z\n"},
		{"duplicate center", "avalanche_centers:\n  c:\n    id: X\n  c:\n    id: Y\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	r, err := Parse([]byte("other: 1\n"))
	require.NoError(t, err)
	assert.Empty(t, r.AllZones())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
