// File: internal/location/hierarchy.go
package location

import (
	"fmt"
	"sort"
	"strings"

	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Node is one entry of the location tree.
type Node struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	IsActive bool      `json:"is_active"`
}

type AreaNode struct {
	Node
}

type ZoneNode struct {
	Node
	Areas []AreaNode `json:"areas"`
}

type WasaNode struct {
	Node
	Zones []ZoneNode `json:"zones"`
}

// Hierarchy is the full WASA → Zone → Area tree, ordered by name.
type Hierarchy struct {
	Wasas []WasaNode `json:"wasas"`
}

func buildHierarchy(wasas []Wasa, zones []Zone, areas []Area) *Hierarchy {
	areasByZone := make(map[uuid.UUID][]AreaNode, len(zones))
	for _, a := range areas {
		areasByZone[a.ZoneID] = append(areasByZone[a.ZoneID], AreaNode{Node{a.ID, a.Name, a.Code, a.IsActive}})
	}
	zonesByWasa := make(map[uuid.UUID][]ZoneNode, len(wasas))
	for _, z := range zones {
		zn := ZoneNode{Node: Node{z.ID, z.Name, z.Code, z.IsActive}, Areas: areasByZone[z.ID]}
		if zn.Areas == nil {
			zn.Areas = []AreaNode{}
		}
		sort.Slice(zn.Areas, func(i, j int) bool { return zn.Areas[i].Name < zn.Areas[j].Name })
		zonesByWasa[z.WasaID] = append(zonesByWasa[z.WasaID], zn)
	}

	h := &Hierarchy{Wasas: make([]WasaNode, 0, len(wasas))}
	for _, w := range wasas {
		wn := WasaNode{Node: Node{w.ID, w.Name, w.Code, w.IsActive}, Zones: zonesByWasa[w.ID]}
		if wn.Zones == nil {
			wn.Zones = []ZoneNode{}
		}
		sort.Slice(wn.Zones, func(i, j int) bool { return wn.Zones[i].Name < wn.Zones[j].Name })
		h.Wasas = append(h.Wasas, wn)
	}
	sort.Slice(h.Wasas, func(i, j int) bool { return h.Wasas[i].Name < h.Wasas[j].Name })
	return h
}

// ActiveOnly returns a copy without inactive nodes. An inactive parent hides
// its whole subtree.
func (h *Hierarchy) ActiveOnly() *Hierarchy {
	out := &Hierarchy{Wasas: []WasaNode{}}
	for _, w := range h.Wasas {
		if !w.IsActive {
			continue
		}
		wn := WasaNode{Node: w.Node, Zones: []ZoneNode{}}
		for _, z := range w.Zones {
			if !z.IsActive {
				continue
			}
			zn := ZoneNode{Node: z.Node, Areas: []AreaNode{}}
			for _, a := range z.Areas {
				if a.IsActive {
					zn.Areas = append(zn.Areas, a)
				}
			}
			wn.Zones = append(wn.Zones, zn)
		}
		out.Wasas = append(out.Wasas, wn)
	}
	return out
}

// Selection is the current state of the cascading selector.
type Selection struct {
	WasaID *uuid.UUID
	ZoneID *uuid.UUID
	AreaID *uuid.UUID
}

// Options is what the selector shows for a Selection: every wasa, the zones
// of the selected wasa and the areas of the selected zone. A child selection
// that does not belong to its parent is dropped and reported as reset.
type Options struct {
	Wasas          []Node     `json:"wasas"`
	Zones          []Node     `json:"zones"`
	Areas          []Node     `json:"areas"`
	SelectedWasaID *uuid.UUID `json:"selected_wasa_id"`
	SelectedZoneID *uuid.UUID `json:"selected_zone_id"`
	SelectedAreaID *uuid.UUID `json:"selected_area_id"`
	WasaReset      bool       `json:"wasa_reset"`
	ZoneReset      bool       `json:"zone_reset"`
	AreaReset      bool       `json:"area_reset"`
}

// Cascade computes the selector options for sel.
func (h *Hierarchy) Cascade(sel Selection) Options {
	opts := Options{Wasas: []Node{}, Zones: []Node{}, Areas: []Node{}}
	var wasa *WasaNode
	for i := range h.Wasas {
		opts.Wasas = append(opts.Wasas, h.Wasas[i].Node)
		if sel.WasaID != nil && h.Wasas[i].ID == *sel.WasaID {
			wasa = &h.Wasas[i]
		}
	}

	if wasa == nil {
		opts.WasaReset = sel.WasaID != nil
		opts.ZoneReset = sel.ZoneID != nil
		opts.AreaReset = sel.AreaID != nil
		return opts
	}
	opts.SelectedWasaID = &wasa.ID

	var zone *ZoneNode
	for i := range wasa.Zones {
		opts.Zones = append(opts.Zones, wasa.Zones[i].Node)
		if sel.ZoneID != nil && wasa.Zones[i].ID == *sel.ZoneID {
			zone = &wasa.Zones[i]
		}
	}
	if zone == nil {
		opts.ZoneReset = sel.ZoneID != nil
		opts.AreaReset = sel.AreaID != nil
		return opts
	}
	opts.SelectedZoneID = &zone.ID

	for i := range zone.Areas {
		opts.Areas = append(opts.Areas, zone.Areas[i].Node)
		if sel.AreaID != nil && zone.Areas[i].ID == *sel.AreaID {
			id := zone.Areas[i].ID
			opts.SelectedAreaID = &id
		}
	}
	opts.AreaReset = sel.AreaID != nil && opts.SelectedAreaID == nil
	return opts
}

// Chain is a resolved WASA → Zone → Area path.
type Chain struct {
	WasaID uuid.UUID
	ZoneID uuid.UUID
	AreaID uuid.UUID
}

// CodeError names the column of a code triple that did not resolve.
type CodeError struct {
	Field   string
	Message string
}

func (e *CodeError) Error() string {
	return e.Message
}

// Index answers membership and code lookups against a Hierarchy snapshot.
type Index struct {
	wasas     map[uuid.UUID]*WasaNode
	zoneWasa  map[uuid.UUID]uuid.UUID
	areaZone  map[uuid.UUID]uuid.UUID
	wasaCodes map[string]*WasaNode
	codes     map[uuid.UUID]string
}

// NewIndex builds lookup tables for h.
func NewIndex(h *Hierarchy) *Index {
	idx := &Index{
		wasas:     make(map[uuid.UUID]*WasaNode),
		zoneWasa:  make(map[uuid.UUID]uuid.UUID),
		areaZone:  make(map[uuid.UUID]uuid.UUID),
		wasaCodes: make(map[string]*WasaNode),
		codes:     make(map[uuid.UUID]string),
	}
	for i := range h.Wasas {
		w := &h.Wasas[i]
		idx.wasas[w.ID] = w
		idx.wasaCodes[normalizeCode(w.Code)] = w
		idx.codes[w.ID] = w.Code
		for _, z := range w.Zones {
			idx.zoneWasa[z.ID] = w.ID
			idx.codes[z.ID] = z.Code
			for _, a := range z.Areas {
				idx.areaZone[a.ID] = z.ID
				idx.codes[a.ID] = a.Code
			}
		}
	}
	return idx
}

// Code returns the code of any wasa, zone or area in the index, or "".
func (idx *Index) Code(id uuid.UUID) string {
	return idx.codes[id]
}

// ValidateChain checks that each given id exists and that the ids form a
// path in the tree. A zone needs a wasa and an area needs a zone.
func (idx *Index) ValidateChain(wasaID, zoneID, areaID *uuid.UUID) error {
	details := map[string]string{}
	if wasaID != nil {
		if _, ok := idx.wasas[*wasaID]; !ok {
			details["wasa_id"] = "The selected WASA does not exist."
		}
	}
	if zoneID != nil {
		parent, ok := idx.zoneWasa[*zoneID]
		switch {
		case !ok:
			details["zone_id"] = "The selected zone does not exist."
		case wasaID == nil:
			details["wasa_id"] = "A WASA is required when a zone is selected."
		case parent != *wasaID:
			details["zone_id"] = "The selected zone does not belong to the selected WASA."
		}
	}
	if areaID != nil {
		parent, ok := idx.areaZone[*areaID]
		switch {
		case !ok:
			details["area_id"] = "The selected area does not exist."
		case zoneID == nil:
			details["zone_id"] = "A zone is required when an area is selected."
		case parent != *zoneID:
			details["area_id"] = "The selected area does not belong to the selected zone."
		}
	}
	if len(details) > 0 {
		return common.NewValidationAPIError(details)
	}
	return nil
}

// ResolveCodes finds the chain for a wasa, zone and area code triple.
// Codes are compared in slug form so "Zone 1" matches "zone-1".
func (idx *Index) ResolveCodes(wasaCode, zoneCode, areaCode string) (Chain, error) {
	w, ok := idx.wasaCodes[normalizeCode(wasaCode)]
	if !ok {
		return Chain{}, &CodeError{Field: "wasa_code", Message: fmt.Sprintf("unknown WASA code %q", wasaCode)}
	}
	for _, z := range w.Zones {
		if normalizeCode(z.Code) != normalizeCode(zoneCode) {
			continue
		}
		for _, a := range z.Areas {
			if normalizeCode(a.Code) == normalizeCode(areaCode) {
				return Chain{WasaID: w.ID, ZoneID: z.ID, AreaID: a.ID}, nil
			}
		}
		return Chain{}, &CodeError{Field: "area_code", Message: fmt.Sprintf("unknown area code %q in zone %q", areaCode, zoneCode)}
	}
	return Chain{}, &CodeError{Field: "zone_code", Message: fmt.Sprintf("unknown zone code %q in WASA %q", zoneCode, wasaCode)}
}

func normalizeCode(code string) string {
	return slug.Make(strings.TrimSpace(code))
}
