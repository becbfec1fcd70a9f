package api

import (
	"net/http"
)

type getStatusResponse struct {
	Status  string `json:"status"`
	Ssid    string `json:"ssid,omitempty"`
	Enabled bool   `json:"enabled"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.adapter == nil {
			a.jsonError(w, "no adapter", http.StatusServiceUnavailable)
			return
		}

		res := &getStatusResponse{
			Status:  a.adapter.Status().CurrentState().String(),
			Enabled: a.adapter.Enabled(),
		}

		if wifi := a.adapter.StatusNetwork(); wifi != nil {
			res.Ssid = wifi.Ssid
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}
