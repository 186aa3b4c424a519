package sandbox

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

// VendorFactory generates vendors scattered around the configured city.
type VendorFactory struct {
	cfg models.SandboxConfig

	mu   sync.Mutex
	fake faker.Faker
	rnd  *rand.Rand
	// vendors that never pick up the IVR call
	unreachable map[string]bool
}

func NewVendorFactory(cfg models.SandboxConfig) *VendorFactory {
	return &VendorFactory{
		cfg:         cfg,
		fake:        faker.NewWithSeed(rand.NewSource(cfg.Seed)),
		rnd:         rand.New(rand.NewSource(cfg.Seed)),
		unreachable: make(map[string]bool),
	}
}

func (vf *VendorFactory) CreateVendor() models.Vendor {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	latRange := vf.cfg.UrbanRadius / 111.0
	lonRange := latRange / math.Cos(vf.cfg.CityLat*math.Pi/180.0)

	latOffset := (vf.rnd.Float64()*2 - 1) * latRange
	lonOffset := (vf.rnd.Float64()*2 - 1) * lonRange

	v := models.Vendor{
		ID:            cuid.New(),
		Name:          vf.fake.Person().Name(),
		Rating:        vf.fake.Float64(1, 1, 5),
		Reviews:       vf.fake.IntBetween(0, 500),
		Price:         fmt.Sprintf("Rs. %d", vf.fake.IntBetween(5, 40)*100),
		HasSmartphone: vf.rnd.Float64() < vf.cfg.SmartphoneRatio,
		Location: models.Location{
			Lat: vf.cfg.CityLat + latOffset,
			Lon: vf.cfg.CityLon + lonOffset,
		},
	}
	if !v.HasSmartphone {
		v.PhoneForCalls = vf.phoneNumber()
	}
	if vf.rnd.Float64() < vf.cfg.UnreachableRatio {
		vf.unreachable[v.ID] = true
	}
	return v
}

// CreateVendors returns n vendors.
func (vf *VendorFactory) CreateVendors(n int) []models.Vendor {
	vendors := make([]models.Vendor, n)
	for i := range vendors {
		vendors[i] = vf.CreateVendor()
	}
	return vendors
}

func (vf *VendorFactory) Unreachable(vendorID string) bool {
	vf.mu.Lock()
	defer vf.mu.Unlock()
	return vf.unreachable[vendorID]
}

func (vf *VendorFactory) phoneNumber() string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, vf.fake.Phone().Number())
	return "+92" + digits
}

// serviceNames are the catalogues of the categories the app ships with.
// Other categories get generated names.
var serviceNames = map[string][]string{
	"1": {"Fan Installation", "Wiring Repair", "Switchboard Repair"},
	"2": {"Pipe Installation", "Leak Repair", "Drain Cleaning"},
	"3": {"AC Installation", "AC Service", "Gas Refill"},
	"4": {"Interior Painting", "Exterior Painting", "Touch Up Painting"},
	"5": {"Engine Tune Up", "Oil Change", "Battery Replacement"},
	"6": {"Deep Cleaning", "Sofa Cleaning", "Kitchen Cleaning"},
}

// CreateServices returns the catalogue of a category. Service ids are
// numbered from 1 within the category.
func (vf *VendorFactory) CreateServices(categoryID string) []models.Service {
	vf.mu.Lock()
	defer vf.mu.Unlock()

	names, ok := serviceNames[categoryID]
	if !ok {
		names = make([]string, vf.fake.IntBetween(2, 4))
		for i := range names {
			word := vf.fake.Lorem().Word()
			names[i] = strings.ToUpper(word[:1]) + word[1:] + " Service"
		}
	}
	services := make([]models.Service, len(names))
	for i, name := range names {
		hours := vf.fake.IntBetween(1, 5)
		unit := "hours"
		if hours == 1 {
			unit = "hour"
		}
		services[i] = models.Service{
			ID:      strconv.Itoa(i + 1),
			Name:    name,
			Price:   fmt.Sprintf("Rs. %d", vf.fake.IntBetween(5, 40)*100),
			Time:    fmt.Sprintf("Approx. %d %s", hours, unit),
			Rating:  vf.fake.Float64(1, 3, 5),
			Reviews: vf.fake.IntBetween(0, 300),
		}
	}
	return services
}

// VerificationCode returns the configured sign-up code, or a random
// 4-digit one.
func (vf *VendorFactory) VerificationCode() string {
	if vf.cfg.VerificationCode != "" {
		return vf.cfg.VerificationCode
	}
	vf.mu.Lock()
	defer vf.mu.Unlock()
	return fmt.Sprintf("%04d", vf.rnd.Intn(10000))
}
