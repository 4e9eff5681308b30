package storefront

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/listing"
)

type StorefrontHandler struct {
	service *Service
}

func NewStorefrontHandler(s *Service) *StorefrontHandler {
	return &StorefrontHandler{
		service: s,
	}
}

func (h *StorefrontHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")
	v1.GET("/airports", h.AirportsHandler)
	v1.POST("/sessions", h.CreateSessionHandler)

	s := v1.Group("/sessions/:id")
	s.GET("", h.SnapshotHandler)
	s.POST("/search", h.SearchHandler)
	s.DELETE("/search", h.ClearSearchHandler)
	s.GET("/flights", h.FlightsHandler)
	s.PUT("/filters", h.SetFiltersHandler)
	s.DELETE("/filters", h.ResetFiltersHandler)
	s.GET("/multidate", h.MultiDateHandler)
	s.POST("/multidate/select", h.SelectDateHandler)
	s.GET("/selection", h.DetailHandler)
	s.PUT("/selection", h.SelectOfferHandler)
	s.DELETE("/selection", h.ClearSelectionHandler)
	s.POST("/pricing", h.PriceHandler)
	s.POST("/pricing/use-suggested", h.UseSuggestedHandler)
	s.DELETE("/pricing", h.ClearPricingHandler)
	s.GET("/booking", h.BookingFormHandler)
	s.POST("/booking", h.BookHandler)
	s.DELETE("/booking", h.ClearBookingHandler)
}

// AirportsHandler godoc
// @Summary      Airport typeahead
// @Description  Debounced airport lookup. A newer query from the same session and field supersedes this one.
// @Tags         airports
// @Produce      json
// @Param        q        query  string  true   "Search text"
// @Param        session  query  string  false  "Session id"
// @Param        field    query  string  false  "Input field, e.g. from or to"
// @Success      200 {array}  apiclient.Airport
// @Failure      409 {object} map[string]string
// @Router       /v1/airports [get]
func (h *StorefrontHandler) AirportsHandler(c *gin.Context) {
	channel := c.Query("session") + ":" + c.DefaultQuery("field", "default")

	airports, err := h.service.Airports(c.Request.Context(), channel, c.Query("q"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, airports)
}

// CreateSessionHandler godoc
// @Summary      Start a storefront session
// @Tags         sessions
// @Produce      json
// @Success      201 {object} Snapshot
// @Router       /v1/sessions [post]
func (h *StorefrontHandler) CreateSessionHandler(c *gin.Context) {
	c.JSON(http.StatusCreated, h.service.CreateSession())
}

// SnapshotHandler godoc
// @Summary      Full session state
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  Snapshot
// @Failure      404  {object}  map[string]string
// @Router       /v1/sessions/{id} [get]
func (h *StorefrontHandler) SnapshotHandler(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Param("id"))
	respond(c, snap, err)
}

// SearchHandler godoc
// @Summary      Search flights
// @Description  Normalizes the form, searches, and loads the surrounding dates' cheapest prices alongside.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        id       path  string       true  "Session id"
// @Param        request  body  SearchInput  true  "Search form"
// @Success      200  {object}  SearchState
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /v1/sessions/{id}/search [post]
func (h *StorefrontHandler) SearchHandler(c *gin.Context) {
	var in SearchInput
	if !bind(c, &in) {
		return
	}
	state, err := h.service.Search(c.Request.Context(), c.Param("id"), in)
	respond(c, state, err)
}

func (h *StorefrontHandler) ClearSearchHandler(c *gin.Context) {
	state, err := h.service.ClearSearch(c.Param("id"))
	respond(c, state, err)
}

// FlightsHandler godoc
// @Summary      Filtered and sorted results
// @Tags         search
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  ListingView
// @Router       /v1/sessions/{id}/flights [get]
func (h *StorefrontHandler) FlightsHandler(c *gin.Context) {
	view, err := h.service.Flights(c.Param("id"))
	respond(c, view, err)
}

// SetFiltersHandler godoc
// @Summary      Apply filters
// @Description  Replaces the filter selection. Categories left out are reset.
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Session id"
// @Param        request  body  listing.Selection  true  "Filters"
// @Success      200  {object}  ListingView
// @Failure      400  {object}  map[string]string
// @Router       /v1/sessions/{id}/filters [put]
func (h *StorefrontHandler) SetFiltersHandler(c *gin.Context) {
	var sel listing.Selection
	if !bind(c, &sel) {
		return
	}
	view, err := h.service.SetFilters(c.Param("id"), sel)
	respond(c, view, err)
}

func (h *StorefrontHandler) ResetFiltersHandler(c *gin.Context) {
	view, err := h.service.ResetFilters(c.Param("id"))
	respond(c, view, err)
}

// MultiDateHandler godoc
// @Summary      Cheapest price per nearby date
// @Tags         search
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  MultiDateView
// @Router       /v1/sessions/{id}/multidate [get]
func (h *StorefrontHandler) MultiDateHandler(c *gin.Context) {
	view, err := h.service.MultiDate(c.Param("id"))
	respond(c, view, err)
}

type selectDateRequest struct {
	Key string `json:"key" binding:"required" example:"2026-01-25|2026-02-01"`
}

// SelectDateHandler godoc
// @Summary      Search another date from the strip
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Session id"
// @Param        request  body  selectDateRequest  true  "Date key"
// @Success      200  {object}  SearchState
// @Failure      400  {object}  map[string]string
// @Router       /v1/sessions/{id}/multidate/select [post]
func (h *StorefrontHandler) SelectDateHandler(c *gin.Context) {
	var req selectDateRequest
	if !bind(c, &req) {
		return
	}
	state, err := h.service.SelectDate(c.Request.Context(), c.Param("id"), req.Key)
	respond(c, state, err)
}

// DetailHandler godoc
// @Summary      Selected offer detail
// @Tags         selection
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  DetailView
// @Failure      400  {object}  map[string]string
// @Router       /v1/sessions/{id}/selection [get]
func (h *StorefrontHandler) DetailHandler(c *gin.Context) {
	view, err := h.service.Detail(c.Param("id"))
	respond(c, view, err)
}

// SelectOfferHandler godoc
// @Summary      Select an offer
// @Tags         selection
// @Accept       json
// @Produce      json
// @Param        id       path  string    true  "Session id"
// @Param        request  body  OfferRef  true  "Offer id or result index"
// @Success      200  {object}  DetailView
// @Failure      404  {object}  map[string]string
// @Router       /v1/sessions/{id}/selection [put]
func (h *StorefrontHandler) SelectOfferHandler(c *gin.Context) {
	var ref OfferRef
	if !bind(c, &ref) {
		return
	}
	view, err := h.service.SelectOffer(c.Param("id"), ref)
	respond(c, view, err)
}

func (h *StorefrontHandler) ClearSelectionHandler(c *gin.Context) {
	if err := h.service.ClearSelection(c.Param("id")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PriceHandler godoc
// @Summary      Price the selected offer
// @Description  A 409 with code OFFER_UNAVAILABLE may carry a suggested alternate offer.
// @Tags         pricing
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  PricingState
// @Failure      409  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Router       /v1/sessions/{id}/pricing [post]
func (h *StorefrontHandler) PriceHandler(c *gin.Context) {
	state, err := h.service.Price(c.Request.Context(), c.Param("id"))
	respond(c, state, err)
}

// UseSuggestedHandler godoc
// @Summary      Select the suggested alternate offer
// @Tags         pricing
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  DetailView
// @Failure      409  {object}  map[string]string
// @Router       /v1/sessions/{id}/pricing/use-suggested [post]
func (h *StorefrontHandler) UseSuggestedHandler(c *gin.Context) {
	view, err := h.service.UseSuggested(c.Param("id"))
	respond(c, view, err)
}

func (h *StorefrontHandler) ClearPricingHandler(c *gin.Context) {
	state, err := h.service.ClearPricing(c.Param("id"))
	respond(c, state, err)
}

func (h *StorefrontHandler) BookingFormHandler(c *gin.Context) {
	form, err := h.service.BookingForm(c.Param("id"))
	respond(c, form, err)
}

// BookHandler godoc
// @Summary      Book the selected offer
// @Description  Validates the passengers first; nothing is booked when validation fails.
// @Tags         booking
// @Accept       json
// @Produce      json
// @Param        id       path  string        true  "Session id"
// @Param        request  body  BookingInput  true  "Traveler forms and contact"
// @Success      200  {object}  BookingState
// @Failure      422  {object}  map[string]interface{}
// @Failure      502  {object}  map[string]interface{}
// @Router       /v1/sessions/{id}/booking [post]
func (h *StorefrontHandler) BookHandler(c *gin.Context) {
	var in BookingInput
	if !bind(c, &in) {
		return
	}
	state, err := h.service.Book(c.Request.Context(), c.Param("id"), in)
	respond(c, state, err)
}

func (h *StorefrontHandler) ClearBookingHandler(c *gin.Context) {
	state, err := h.service.ClearBooking(c.Param("id"))
	respond(c, state, err)
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON body",
			"code":  ErrorCodeValidation,
		})
		return false
	}
	return true
}

func respond(c *gin.Context, body any, err error) {
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func sendError(c *gin.Context, err error) {
	var appErr *AppError

	if errors.As(appErrorFor(err), &appErr) {
		body := gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		}
		if appErr.Payload != nil {
			body["details"] = appErr.Payload
		}
		c.JSON(appErr.Status, body)
		return
	}

	// Default to 500 for unknown errors
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"code":    ErrorCodeInternalFailure,
		"details": err.Error(),
	})
}
