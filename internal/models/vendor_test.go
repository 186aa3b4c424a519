package models_test

import (
	"math"
	"testing"

	"github.com/chrisdamba/homeservices/internal/models"
)

func TestVendorValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		vendor  models.Vendor
		wantErr bool
	}{
		"complete vendor":  {vendor: models.Vendor{ID: "v1", Rating: 4.5, Reviews: 3}},
		"unrated vendor":   {vendor: models.Vendor{ID: "v1"}},
		"top rating":       {vendor: models.Vendor{ID: "v1", Rating: 5}},
		"missing id":       {vendor: models.Vendor{Rating: 4}, wantErr: true},
		"rating above 5":   {vendor: models.Vendor{ID: "v1", Rating: 5.1}, wantErr: true},
		"negative rating":  {vendor: models.Vendor{ID: "v1", Rating: -1}, wantErr: true},
		"negative reviews": {vendor: models.Vendor{ID: "v1", Reviews: -2}, wantErr: true},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.vendor.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDispatchMode(t *testing.T) {
	if got := (models.Vendor{HasSmartphone: true}).DispatchMode(); got != models.DispatchInApp {
		t.Errorf("smartphone vendor: %s", got)
	}
	if got := (models.Vendor{}).DispatchMode(); got != models.DispatchPhoneCall {
		t.Errorf("vendor without smartphone: %s", got)
	}
}

func TestSortByDistance(t *testing.T) {
	origin := models.Location{Lat: 31.5204, Lon: 74.3587}
	vendors := []models.Vendor{
		{ID: "gulberg", Location: models.Location{Lat: 31.5120, Lon: 74.3446}},
		{ID: "dha", Location: models.Location{Lat: 31.4697, Lon: 74.4079}},
		{ID: "here", Location: origin},
	}

	sorted := models.SortByDistance(vendors, origin)
	var ids []string
	for _, v := range sorted {
		ids = append(ids, v.ID)
	}
	if got, want := ids, []string{"here", "gulberg", "dha"}; !equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if vendors[0].ID != "gulberg" {
		t.Error("input slice was reordered")
	}
}

func TestDistanceKm(t *testing.T) {
	lahore := models.Location{Lat: 31.5204, Lon: 74.3587}
	karachi := models.Location{Lat: 24.8607, Lon: 67.0011}

	if d := lahore.DistanceKm(lahore); d != 0 {
		t.Errorf("distance to itself = %f", d)
	}
	// about 1030 km as the crow flies
	if d := lahore.DistanceKm(karachi); math.Abs(d-1030) > 15 {
		t.Errorf("Lahore-Karachi = %.1f km", d)
	}
}

func TestLocationScan(t *testing.T) {
	var l models.Location
	if err := l.Scan([]byte("POINT(74.3587 31.5204)")); err != nil {
		t.Fatal(err)
	}
	if l != (models.Location{Lat: 31.5204, Lon: 74.3587}) {
		t.Errorf("scanned %+v", l)
	}
	if err := l.Scan(42); err == nil {
		t.Error("scanning an int succeeded")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
