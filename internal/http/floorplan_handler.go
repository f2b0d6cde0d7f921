package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"expohall/internal/domain"
	"expohall/internal/service"

	"go.uber.org/zap"
)

// FloorplanHandler 平面图编辑 API
// 路由形态：/admin/api/v1/floorplan/{eventId}/{design|assign|rename|publish}
type FloorplanHandler struct {
	floorplan *service.FloorplanService
	logger    *zap.Logger
}

func NewFloorplanHandler(floorplan *service.FloorplanService, logger *zap.Logger) *FloorplanHandler {
	return &FloorplanHandler{floorplan: floorplan, logger: logger}
}

// Dispatch 解析 {eventId}/{action} 并分发
func (h *FloorplanHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/floorplan/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	eventID, action := parts[0], parts[1]

	switch {
	case action == "design" && r.Method == http.MethodGet:
		h.getDesign(w, r, eventID)
	case action == "design" && r.Method == http.MethodPut:
		h.saveDesign(w, r, eventID)
	case action == "assign" && r.Method == http.MethodPost:
		h.assign(w, r, eventID)
	case action == "rename" && r.Method == http.MethodPost:
		h.rename(w, r, eventID)
	case action == "publish" && r.Method == http.MethodPost:
		h.publish(w, r, eventID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *FloorplanHandler) getDesign(w http.ResponseWriter, r *http.Request, eventID string) {
	booths, err := h.floorplan.Design(r.Context(), eventID)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOk(w, map[string]any{"booths": booths})
}

// SaveDesignRequest 整组快照保存请求
type SaveDesignRequest struct {
	Booths []domain.Booth `json:"booths"`
}

func (h *FloorplanHandler) saveDesign(w http.ResponseWriter, r *http.Request, eventID string) {
	var req SaveDesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.floorplan.SaveDesign(r.Context(), eventID, req.Booths); err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOk(w, map[string]int{"count": len(req.Booths)})
}

// AssignRequest 展位分配请求
type AssignRequest struct {
	BoothID     string `json:"booth_id"`
	ExhibitorID string `json:"exhibitor_id"`
}

func (h *FloorplanHandler) assign(w http.ResponseWriter, r *http.Request, eventID string) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.floorplan.AssignExhibitorToBooth(r.Context(), eventID, req.BoothID, req.ExhibitorID)
	if err != nil {
		// 错误串直接面向用户展示；重试同一分配会收敛到正确状态
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOk(w, result)
}

// RenameRequest 展位号重命名请求
type RenameRequest struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

func (h *FloorplanHandler) rename(w http.ResponseWriter, r *http.Request, eventID string) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.floorplan.RenameBooth(r.Context(), eventID, req.OldID, req.NewID); err != nil {
		writeFail(w, http.StatusConflict, err.Error())
		return
	}
	writeOk(w, map[string]string{"id": req.NewID})
}

func (h *FloorplanHandler) publish(w http.ResponseWriter, r *http.Request, eventID string) {
	svg, err := h.floorplan.PublishFloorplan(r.Context(), eventID)
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOk(w, map[string]string{"svg": svg})
}
