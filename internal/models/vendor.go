package models

import (
	"errors"
	"fmt"
	"sort"
)

type DispatchMode string

const (
	DispatchInApp     DispatchMode = "in_app"
	DispatchPhoneCall DispatchMode = "phone_call"
)

// Vendor is a read-only snapshot of a service provider as returned by
// the vendors-by-service query.
type Vendor struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	Price         string   `json:"price"`
	HasSmartphone bool     `json:"hasSmartphone"`
	PhoneForCalls string   `json:"phoneForCalls,omitempty"`
	Location      Location `json:"location"`
}

// DispatchMode tells how the vendor is reached once selected: vendors with
// the mobile app book in-app, everyone else is called through the IVR.
func (v Vendor) DispatchMode() DispatchMode {
	if v.HasSmartphone {
		return DispatchInApp
	}
	return DispatchPhoneCall
}

func (v Vendor) Validate() error {
	if v.ID == "" {
		return errors.New("vendor id is empty")
	}
	if v.Rating < 0 || v.Rating > 5 {
		return fmt.Errorf("vendor %s: rating %.1f out of range [0,5]", v.ID, v.Rating)
	}
	if v.Reviews < 0 {
		return fmt.Errorf("vendor %s: negative review count %d", v.ID, v.Reviews)
	}
	return nil
}

// SortByDistance orders vendors nearest-first around origin. The input is
// not modified.
func SortByDistance(vendors []Vendor, origin Location) []Vendor {
	sorted := make([]Vendor, len(vendors))
	copy(sorted, vendors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Location.DistanceKm(origin) < sorted[j].Location.DistanceKm(origin)
	})
	return sorted
}
