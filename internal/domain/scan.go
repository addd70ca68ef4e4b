package domain

// ScanRecord is one processed image as stored in the per-user manifest.
// Records are append-only: once written they are never updated in place.
type ScanRecord struct {
	ImageURL  string `json:"imageUrl"`
	ImageName string `json:"imageName"`
	OcrText   string `json:"ocrText"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// Manifest is the full main.json document for one user.
type Manifest struct {
	Images []ScanRecord `json:"images"`
}

// FindByImageName returns the first record whose ImageName matches name.
func (m Manifest) FindByImageName(name string) (ScanRecord, bool) {
	for _, r := range m.Images {
		if r.ImageName == name {
			return r, true
		}
	}
	return ScanRecord{}, false
}

// ScanItem is a gallery entry built from the blob listing, optionally joined
// with its manifest record. ID is the 1-based position in listing order and
// is not stable across listings.
type ScanItem struct {
	ID       int    `json:"id"`
	Key      string `json:"key"`
	ImageURL string `json:"image"`
	Name     string `json:"text"`
	OcrText  string `json:"ocrText,omitempty"`
	Summary  string `json:"summary,omitempty"`
}
