package dto

// AddonSelection is the boundary shape for customization payloads. The UI
// sends loosely-shaped addon objects; only validated selections reach the
// core.
type AddonSelection struct {
	AddonID   int    `json:"addonId"`
	AddonType string `json:"addonType"`
	Quantity  int    `json:"quantity"`
}

type AddItemRequest struct {
	MenuItemID int              `json:"menuItemId"`
	Quantity   int              `json:"quantity"`
	Notes      string           `json:"notes"`
	Addons     []AddonSelection `json:"addons"`
}

type ChangeQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type FlushTicketRequest struct {
	// PrinterRef overrides the venue's kitchen routing key when set.
	PrinterRef string `json:"printerRef"`
}
