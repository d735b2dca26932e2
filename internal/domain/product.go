package domain

// Product is the admin-facing projection of a Shopify product used by the bundle builder
type Product struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Handle         string           `json:"handle"`
	Status         string           `json:"status"`
	ImageURL       string           `json:"imageUrl,omitempty"`
	TotalInventory int              `json:"totalInventory"`
	Variants       []ProductVariant `json:"variants"`
}

// ProductVariant is a purchasable variant of a Product
type ProductVariant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	SKU   string `json:"sku,omitempty"`
}
