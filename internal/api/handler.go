package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/shoerack/internal/rack"
	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// Rack is the subset of *rack.Rack the handlers call.
type Rack interface {
	Shoes() ([]*types.Shoe, error)
	Shoe(id string) (*types.Shoe, error)
	AddShoe(ctx context.Context, in types.Shoe) (*types.Shoe, error)
	EditShoe(ctx context.Context, id string, edit rack.ShoeEdit) (*types.Shoe, error)
	DeleteShoe(ctx context.Context, id string) (registry.DeleteOutcome, error)
	RetireShoe(ctx context.Context, id string) (*types.Shoe, error)
	SetDefaultShoe(ctx context.Context, id string, cats []types.RunCategory, mode types.DefaultMode) (*types.Shoe, error)
	ClearDefaultShoe(ctx context.Context, id string, cats []types.RunCategory) (*types.Shoe, error)
	SetSuitableRunTypes(ctx context.Context, id string, cats []types.RunCategory) (*types.Shoe, error)
	AssignActivities(ctx context.Context, activityIDs []string, shoeID string) (*types.Shoe, error)
	UnassignActivities(ctx context.Context, activityIDs []string, shoeID string) (*types.Shoe, error)
	RecomputeStatistics(ctx context.Context, shoeID string) (types.Statistics, error)
	RestrictedShoeIDs() ([]string, error)
}

// Handler serves the shoe API.
type Handler struct {
	rack       Rack
	activities types.ActivityWriter
}

// NewHandler constructs a Handler. activities may be nil, in which case the
// activity listing is not served.
func NewHandler(r Rack, activities types.ActivityWriter) *Handler {
	return &Handler{rack: r, activities: activities}
}

type createShoeRequest struct {
	Brand            string     `json:"brand"`
	Model            string     `json:"model"`
	Nickname         string     `json:"nickname"`
	AcquiredAt       *time.Time `json:"acquired_at"`
	LifespanDistance float64    `json:"lifespan_distance"`
	ImageRef         string     `json:"image_ref"`
	SuitableRunTypes []string   `json:"suitable_run_types"`
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
	Mode       string   `json:"mode"`
}

type activitiesRequest struct {
	ActivityIDs []string `json:"activity_ids" binding:"required"`
}

// shoeView is a shoe plus the values derived from it for display.
type shoeView struct {
	*types.Shoe
	Condition  types.WearCondition `json:"condition"`
	Restricted bool                `json:"restricted"`
	Statistics types.Statistics    `json:"statistics"`
}

func (h *Handler) view(s *types.Shoe, restricted map[string]bool) shoeView {
	return shoeView{
		Shoe:       s,
		Condition:  s.Condition(),
		Restricted: restricted[s.ShoeID],
		Statistics: s.Statistics(),
	}
}

func (h *Handler) restrictedSet() (map[string]bool, error) {
	ids, err := h.rack.RestrictedShoeIDs()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (h *Handler) respondShoe(c *gin.Context, status int, s *types.Shoe) {
	restricted, err := h.restrictedSet()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, gin.H{"shoe": h.view(s, restricted)})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, badRequest("invalid_json", "invalid request body"))
		return false
	}
	return true
}

// ListShoes returns every shoe in creation order.
func (h *Handler) ListShoes(c *gin.Context) {
	shoes, err := h.rack.Shoes()
	if err != nil {
		writeError(c, err)
		return
	}
	restricted, err := h.restrictedSet()
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]shoeView, 0, len(shoes))
	for _, s := range shoes {
		views = append(views, h.view(s, restricted))
	}
	c.JSON(http.StatusOK, gin.H{"shoes": views})
}

// CreateShoe adds a shoe.
func (h *Handler) CreateShoe(c *gin.Context) {
	var req createShoeRequest
	if !bindJSON(c, &req) {
		return
	}
	suitable, err := types.ParseRunCategories(req.SuitableRunTypes)
	if err != nil {
		writeError(c, err)
		return
	}
	in := types.Shoe{
		Brand:            req.Brand,
		Model:            req.Model,
		Nickname:         req.Nickname,
		LifespanDistance: req.LifespanDistance,
		ImageRef:         req.ImageRef,
		SuitableRunTypes: suitable,
	}
	if req.AcquiredAt != nil {
		in.AcquiredAt = *req.AcquiredAt
	}
	s, err := h.rack.AddShoe(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusCreated, s)
}

// GetShoe returns one shoe with its statistics.
func (h *Handler) GetShoe(c *gin.Context) {
	s, err := h.rack.Shoe(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// UpdateShoe applies a partial edit of the descriptive fields.
func (h *Handler) UpdateShoe(c *gin.Context) {
	var edit rack.ShoeEdit
	if !bindJSON(c, &edit) {
		return
	}
	s, err := h.rack.EditShoe(c.Request.Context(), c.Param("id"), edit)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// DeleteShoe removes a shoe and reports the defaults it held.
func (h *Handler) DeleteShoe(c *gin.Context) {
	out, err := h.rack.DeleteShoe(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	lost := out.LostDefaults
	if lost == nil {
		lost = []types.RunCategory{}
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":             out.ShoeID,
		"lost_defaults":       lost,
		"needs_daily_default": out.NeedsDailyDefault,
	})
}

// RetireShoe toggles the retired flag.
func (h *Handler) RetireShoe(c *gin.Context) {
	s, err := h.rack.RetireShoe(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// SetDefaults makes the shoe the default for the requested categories. Mode
// defaults to replace.
func (h *Handler) SetDefaults(c *gin.Context) {
	var req categoriesRequest
	if !bindJSON(c, &req) {
		return
	}
	cats, err := types.ParseRunCategories(req.Categories)
	if err != nil {
		writeError(c, err)
		return
	}
	mode := types.DefaultMode(req.Mode)
	if mode == "" {
		mode = types.DefaultReplace
	}
	s, err := h.rack.SetDefaultShoe(c.Request.Context(), c.Param("id"), cats, mode)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// ClearDefaults removes default categories from the shoe. An empty list
// clears all of them.
func (h *Handler) ClearDefaults(c *gin.Context) {
	var req categoriesRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	cats, err := types.ParseRunCategories(req.Categories)
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.rack.ClearDefaultShoe(c.Request.Context(), c.Param("id"), cats)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// SetSuitable replaces the shoe's suitable run categories.
func (h *Handler) SetSuitable(c *gin.Context) {
	var req categoriesRequest
	if !bindJSON(c, &req) {
		return
	}
	cats, err := types.ParseRunCategories(req.Categories)
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.rack.SetSuitableRunTypes(c.Request.Context(), c.Param("id"), cats)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// AssignActivities moves activities to the shoe.
func (h *Handler) AssignActivities(c *gin.Context) {
	var req activitiesRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.rack.AssignActivities(c.Request.Context(), req.ActivityIDs, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// UnassignActivities detaches activities from the shoe.
func (h *Handler) UnassignActivities(c *gin.Context) {
	var req activitiesRequest
	if !bindJSON(c, &req) {
		return
	}
	s, err := h.rack.UnassignActivities(c.Request.Context(), req.ActivityIDs, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondShoe(c, http.StatusOK, s)
}

// Recompute refreshes the shoe's statistics.
func (h *Handler) Recompute(c *gin.Context) {
	stats, err := h.rack.RecomputeStatistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

// Restricted lists the shoes locked by the free tier.
func (h *Handler) Restricted(c *gin.Context) {
	ids, err := h.rack.RestrictedShoeIDs()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restricted": ids})
}

// ListActivities returns stored activities, newest first.
func (h *Handler) ListActivities(c *gin.Context) {
	if h.activities == nil {
		writeError(c, newAPIError(http.StatusNotFound, "not_found", "activity listing is not available"))
		return
	}
	acts, err := h.activities.ListActivities(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": acts})
}
