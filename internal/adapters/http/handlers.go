package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ekoclu/aniparty/internal/domain"
	"github.com/ekoclu/aniparty/internal/party"
)

// PartyHandlers is the REST bootstrap surface: a client creates or
// resolves a party here, then joins it over the websocket.
type PartyHandlers struct {
	Parties *party.Manager
}

type CreatePartyRequest struct {
	CreatorID int64 `json:"creatorId" binding:"required,gt=0"`
	AnimeID   int64 `json:"animeId" binding:"required,gt=0"`
	EpisodeID int64 `json:"episodeId" binding:"required,gt=0"`
	IsPublic  bool  `json:"isPublic"`
}

func (h *PartyHandlers) CreateParty(c *gin.Context) {
	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid fields"})
		return
	}

	p, err := h.Parties.Create(domain.UserID(req.CreatorID), req.AnimeID, req.EpisodeID, req.IsPublic)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create party")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create party"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

type codeParam struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

func (h *PartyHandlers) GetPartyByCode(c *gin.Context) {
	var p codeParam
	if err := c.ShouldBindUri(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
		return
	}

	found, err := h.Parties.GetByCode(domain.RoomCode(p.Code))
	if errors.Is(err, party.ErrPartyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "watch party not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, found)
}
