package api

import (
	"github.com/starford/gamewatch/internal/cards"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/loadservice"
)

// LoadRequest is the request body for a manual load.
type LoadRequest struct {
	Path string `json:"path" example:"/media/fat/_Arcade/pacman.mra" validate:"required"`
}

// AssignCardRequest is the request body for assigning a card.
type AssignCardRequest struct {
	Content string `json:"content" example:"/media/fat/_Arcade/pacman.mra"`
}

// LoadedResponse is the current record (aliased from the domain layer).
type LoadedResponse = loadservice.Loaded

// HistoryResponse wraps history listings.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries" validate:"required"`
}

// CardsResponse wraps the card table.
type CardsResponse struct {
	Cards []cards.Card `json:"cards" validate:"required"`
}

// LoadAccepted is returned once the load command reached the host.
type LoadAccepted struct {
	Path   string `json:"path" example:"/media/fat/_Arcade/pacman.mra"`
	Status string `json:"status" example:"sent"`
}
