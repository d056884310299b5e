// File: internal/location/hierarchy_test.go
package location

import (
	"testing"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtureTree struct {
	h                    *Hierarchy
	dhaka, ctg           uuid.UUID
	mirpur, gulshan      uuid.UUID
	patenga              uuid.UUID
	mirpur10, mirpur11   uuid.UUID
	gulshan1, oldPatenga uuid.UUID
}

func newFixtureTree() fixtureTree {
	f := fixtureTree{
		dhaka: uuid.New(), ctg: uuid.New(),
		mirpur: uuid.New(), gulshan: uuid.New(), patenga: uuid.New(),
		mirpur10: uuid.New(), mirpur11: uuid.New(), gulshan1: uuid.New(), oldPatenga: uuid.New(),
	}
	wasas := []Wasa{
		{BaseModel: common.BaseModel{ID: f.dhaka}, Name: "Dhaka WASA", Code: "dhaka", IsActive: true},
		{BaseModel: common.BaseModel{ID: f.ctg}, Name: "Chattogram WASA", Code: "ctg", IsActive: true},
	}
	zones := []Zone{
		{BaseModel: common.BaseModel{ID: f.mirpur}, WasaID: f.dhaka, Name: "Mirpur", Code: "zone-1", IsActive: true},
		{BaseModel: common.BaseModel{ID: f.gulshan}, WasaID: f.dhaka, Name: "Gulshan", Code: "zone-2", IsActive: false},
		{BaseModel: common.BaseModel{ID: f.patenga}, WasaID: f.ctg, Name: "Patenga", Code: "zone-1", IsActive: true},
	}
	areas := []Area{
		{BaseModel: common.BaseModel{ID: f.mirpur11}, ZoneID: f.mirpur, Name: "Mirpur 11", Code: "m11", IsActive: true},
		{BaseModel: common.BaseModel{ID: f.mirpur10}, ZoneID: f.mirpur, Name: "Mirpur 10", Code: "m10", IsActive: false},
		{BaseModel: common.BaseModel{ID: f.gulshan1}, ZoneID: f.gulshan, Name: "Gulshan 1", Code: "g1", IsActive: true},
		{BaseModel: common.BaseModel{ID: f.oldPatenga}, ZoneID: f.patenga, Name: "Old Patenga", Code: "op", IsActive: true},
	}
	f.h = buildHierarchy(wasas, zones, areas)
	return f
}

func TestBuildHierarchy_NestsAndSorts(t *testing.T) {
	f := newFixtureTree()
	require.Len(t, f.h.Wasas, 2)
	assert.Equal(t, "Chattogram WASA", f.h.Wasas[0].Name)
	dhaka := f.h.Wasas[1]
	require.Len(t, dhaka.Zones, 2)
	assert.Equal(t, "Gulshan", dhaka.Zones[0].Name)
	mirpur := dhaka.Zones[1]
	require.Len(t, mirpur.Areas, 2)
	assert.Equal(t, "Mirpur 10", mirpur.Areas[0].Name)
}

func TestHierarchy_ActiveOnlyDropsInactiveSubtrees(t *testing.T) {
	f := newFixtureTree()
	active := f.h.ActiveOnly()

	dhaka := active.Wasas[1]
	require.Len(t, dhaka.Zones, 1, "inactive Gulshan zone and its areas are hidden")
	assert.Equal(t, f.mirpur, dhaka.Zones[0].ID)
	require.Len(t, dhaka.Zones[0].Areas, 1)
	assert.Equal(t, f.mirpur11, dhaka.Zones[0].Areas[0].ID)

	// The source tree is left untouched.
	assert.Len(t, f.h.Wasas[1].Zones, 2)
}

func TestHierarchy_Cascade(t *testing.T) {
	f := newFixtureTree()

	t.Run("nothing selected", func(t *testing.T) {
		opts := f.h.Cascade(Selection{})
		assert.Len(t, opts.Wasas, 2)
		assert.Empty(t, opts.Zones)
		assert.Empty(t, opts.Areas)
		assert.False(t, opts.ZoneReset)
	})

	t.Run("wasa selected lists its zones only", func(t *testing.T) {
		opts := f.h.Cascade(Selection{WasaID: &f.ctg})
		require.Len(t, opts.Zones, 1)
		assert.Equal(t, f.patenga, opts.Zones[0].ID)
		assert.Empty(t, opts.Areas)
		assert.Equal(t, f.ctg, *opts.SelectedWasaID)
	})

	t.Run("full chain", func(t *testing.T) {
		opts := f.h.Cascade(Selection{WasaID: &f.dhaka, ZoneID: &f.mirpur, AreaID: &f.mirpur11})
		assert.Len(t, opts.Areas, 2)
		assert.Equal(t, f.mirpur, *opts.SelectedZoneID)
		assert.Equal(t, f.mirpur11, *opts.SelectedAreaID)
		assert.False(t, opts.ZoneReset)
		assert.False(t, opts.AreaReset)
	})

	t.Run("parent change resets children", func(t *testing.T) {
		// Mirpur is still selected but the wasa switched to Chattogram.
		opts := f.h.Cascade(Selection{WasaID: &f.ctg, ZoneID: &f.mirpur, AreaID: &f.mirpur11})
		assert.Nil(t, opts.SelectedZoneID)
		assert.Nil(t, opts.SelectedAreaID)
		assert.True(t, opts.ZoneReset)
		assert.True(t, opts.AreaReset)
		assert.Empty(t, opts.Areas)
		assert.Len(t, opts.Zones, 1)
	})

	t.Run("area outside zone is reset", func(t *testing.T) {
		opts := f.h.Cascade(Selection{WasaID: &f.dhaka, ZoneID: &f.mirpur, AreaID: &f.gulshan1})
		assert.Equal(t, f.mirpur, *opts.SelectedZoneID)
		assert.Nil(t, opts.SelectedAreaID)
		assert.True(t, opts.AreaReset)
	})

	t.Run("unknown wasa", func(t *testing.T) {
		unknown := uuid.New()
		opts := f.h.Cascade(Selection{WasaID: &unknown, ZoneID: &f.mirpur})
		assert.True(t, opts.WasaReset)
		assert.True(t, opts.ZoneReset)
		assert.Nil(t, opts.SelectedWasaID)
	})
}

func TestIndex_ValidateChain(t *testing.T) {
	f := newFixtureTree()
	idx := NewIndex(f.h)
	unknown := uuid.New()

	assert.NoError(t, idx.ValidateChain(&f.dhaka, &f.mirpur, &f.mirpur10))
	assert.NoError(t, idx.ValidateChain(&f.dhaka, nil, nil))
	assert.NoError(t, idx.ValidateChain(nil, nil, nil))

	cases := map[string]struct {
		wasa, zone, area *uuid.UUID
		field            string
	}{
		"zone of other wasa": {&f.ctg, &f.mirpur, nil, "zone_id"},
		"area of other zone": {&f.dhaka, &f.mirpur, &f.gulshan1, "area_id"},
		"zone without wasa":  {nil, &f.mirpur, nil, "wasa_id"},
		"area without zone":  {&f.dhaka, nil, &f.mirpur11, "zone_id"},
		"unknown wasa":       {&unknown, nil, nil, "wasa_id"},
		"unknown area":       {&f.dhaka, &f.mirpur, &unknown, "area_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := idx.ValidateChain(tc.wasa, tc.zone, tc.area)
			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
			assert.Contains(t, apiErr.Details, tc.field)
		})
	}
}

func TestIndex_ResolveCodes(t *testing.T) {
	f := newFixtureTree()
	idx := NewIndex(f.h)

	chain, err := idx.ResolveCodes("DHAKA", "Zone 1", "M11")
	require.NoError(t, err)
	assert.Equal(t, Chain{WasaID: f.dhaka, ZoneID: f.mirpur, AreaID: f.mirpur11}, chain)

	// Zone codes repeat across wasas.
	chain, err = idx.ResolveCodes("ctg", "zone-1", "op")
	require.NoError(t, err)
	assert.Equal(t, f.patenga, chain.ZoneID)

	var codeErr *CodeError
	_, err = idx.ResolveCodes("ctg", "zone-1", "m11")
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "area_code", codeErr.Field)

	_, err = idx.ResolveCodes("ctg", "zone-9", "op")
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "zone_code", codeErr.Field)

	_, err = idx.ResolveCodes("sylhet", "zone-1", "x")
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "wasa_code", codeErr.Field)

	assert.Equal(t, "zone-1", idx.Code(f.mirpur))
}
