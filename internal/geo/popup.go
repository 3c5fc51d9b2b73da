package geo

// AlignBottomCenter anchors the bubble's bottom edge, horizontally
// centered, on its geographic position so it points at the marker.
const AlignBottomCenter = "bottom_center"

// PopupItem is the marker a bubble is opened for.
type PopupItem struct {
	Title   string
	Address string
	Snippet string
	Point   GeoPoint
}

// Bubble is the rendered content of an open popup.
type Bubble struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Position    GeoPoint `json:"position"`
	Align       string   `json:"align"`
}

// Popup is the single info bubble shown over a map.  At most one bubble
// is open at a time; opening a new one replaces the old.
type Popup struct {
	bubble Bubble
	open   bool
}

// Open shows the bubble for item, closing any bubble already open.
func (p *Popup) Open(item PopupItem) {
	p.Close()
	p.bubble = Bubble{
		Name:        item.Title,
		Address:     item.Address,
		Description: item.Snippet,
		Position:    item.Point,
		Align:       AlignBottomCenter,
	}
	p.open = true
}

// Close hides the bubble.  Closing a closed popup is a no-op.
func (p *Popup) Close() {
	if p.open {
		p.open = false
		p.bubble = Bubble{}
	}
}

func (p *Popup) IsOpen() bool { return p.open }

// Bubble returns the open bubble, or false when the popup is closed.
func (p *Popup) Bubble() (Bubble, bool) {
	return p.bubble, p.open
}
