package models

// Service is one entry of a category's service catalogue.
type Service struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Price   string  `json:"price"`
	Time    string  `json:"time"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
	Image   string  `json:"image,omitempty"`
}
