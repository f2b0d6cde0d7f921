package httpapi

import (
	"encoding/json"
	"net/http"

	"expohall/internal/replay"
	"expohall/internal/service"

	"go.uber.org/zap"
)

// CheckInHandler 签到提交 + 离线队列管理
type CheckInHandler struct {
	checkins *service.CheckInService
	replayer *replay.Replayer
	logger   *zap.Logger
}

func NewCheckInHandler(checkins *service.CheckInService, replayer *replay.Replayer, logger *zap.Logger) *CheckInHandler {
	return &CheckInHandler{checkins: checkins, replayer: replayer, logger: logger}
}

// SubmitResponse 提交响应
type SubmitResponse struct {
	Status string `json:"status"` // delivered | queued | failed
	ID     string `json:"id,omitempty"`
}

// Submit POST /edge/api/v1/checkin
func (h *CheckInHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, rec, err := h.checkins.Submit(r.Context(), req)
	if err != nil {
		// failed: 本地队列也不可用，动作未被记录
		writeFail(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := SubmitResponse{Status: string(status)}
	if rec != nil {
		resp.ID = rec.ID
	}
	writeOk(w, resp)
}

// Pending GET /edge/api/v1/checkins/pending
func (h *CheckInHandler) Pending(w http.ResponseWriter, r *http.Request) {
	recs, err := h.checkins.Pending(r.Context())
	if err != nil {
		writeFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOk(w, recs)
}

// Purge DELETE /edge/api/v1/checkins/pending
func (h *CheckInHandler) Purge(w http.ResponseWriter, r *http.Request) {
	purged, err := h.checkins.Purge(r.Context())
	if err != nil {
		writeFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOk(w, map[string]int{"purged": purged})
}

// Sync POST /edge/api/v1/sync（手动触发一次重放）
func (h *CheckInHandler) Sync(w http.ResponseWriter, _ *http.Request) {
	h.replayer.Trigger()
	writeOk(w, map[string]string{"status": "triggered"})
}
