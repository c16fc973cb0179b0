package models

type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Gallery     []string `json:"gallery,omitempty"`
}

// CartInput converts a catalogue product into the add-to-cart payload.
func (p Product) CartInput() ProductInput {
	return ProductInput{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.ImageURL,
	}
}
