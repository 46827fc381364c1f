package httptransport

import (
	"fmt"
	"net/http"

	"spyral/internal/asset"
)

// ipfsBaseCID pins the directory holding one artwork per lifecycle phase.
const ipfsBaseCID = "ipfs://bafybeice35pax2yc3pcwjdh445g7eol7lag4z4aalpgquv6bpdjdz6m7ja"

// phasePresentation maps each phase to its display name and artwork.
var phasePresentation = map[asset.Phase]struct {
	Name string
	File string
}{
	asset.PhaseUpload:      {"Upload", "upload.jpg"},
	asset.PhaseCollaborate: {"Collaborate", "collaborate.jpg"},
	asset.PhaseRegister:    {"Register", "register.jpg"},
	asset.PhasePublish:     {"Publish", "publish.jpg"},
	asset.PhaseRevenue:     {"Revenue", "revenue.jpg"},
}

type metadataAttribute struct {
	TraitType   string `json:"trait_type"`
	DisplayType string `json:"display_type,omitempty"`
	Value       any    `json:"value"`
}

type metadataResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	ExternalURL string              `json:"external_url"`
	Attributes  []metadataAttribute `json:"attributes"`
}

// handleMetadata renders the public token metadata document for one
// asset, mirroring what marketplaces and wallets expect.
func (h *Handler) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.lifecycle.GetAssetData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	presentation := phasePresentation[a.Phase]
	doc := metadataResponse{
		Name:        fmt.Sprintf("Spyral Song #%d", a.ID),
		Description: fmt.Sprintf("This song is in the %s phase with %d streams.", presentation.Name, a.StreamCount),
		Image:       fmt.Sprintf("%s/%s", ipfsBaseCID, presentation.File),
		ExternalURL: fmt.Sprintf("https://spyral.com/song/%d", a.ID),
		Attributes: []metadataAttribute{
			{TraitType: "Lifecycle State", Value: presentation.Name},
			{TraitType: "Stream Count", DisplayType: "number", Value: a.StreamCount},
			{TraitType: "Revenue Generated", Value: a.LifetimeRevenue},
			{TraitType: "Track ID", Value: a.ExternalTrackID},
			{TraitType: "Audio Hash", Value: a.IntegrityHash},
			{TraitType: "Collaborators", Value: len(a.Collaborators)},
		},
	}
	if !a.PublishedAt.IsZero() {
		doc.Attributes = append(doc.Attributes, metadataAttribute{
			TraitType: "Published Date", DisplayType: "date", Value: a.PublishedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, doc)
}
