package models

import "strings"

const (
	minAddressLength = 5
	maxDetailsLength = 100
)

type Address struct {
	ID       string    `json:"id,omitempty"`
	Label    string    `json:"label"`
	Address  string    `json:"address"`
	Details  string    `json:"details,omitempty"`
	Location *Location `json:"location"`
}

// AddressErrors maps a field name to its validation message.
type AddressErrors map[string]string

func (e AddressErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"label", "address", "location", "details"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Validate returns nil or an AddressErrors describing every invalid field.
func (a Address) Validate() error {
	errs := AddressErrors{}

	if a.Label == "" {
		errs["label"] = "Label is required"
	}
	if len(strings.TrimSpace(a.Address)) < minAddressLength {
		errs["address"] = "Address must be at least 5 characters long"
	}
	if a.Location == nil {
		errs["location"] = "Location coordinates are required"
	}
	if len(a.Details) > maxDetailsLength {
		errs["details"] = "Details must not exceed 100 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
