package httpapi

import "net/http"

type siteStatusResponse struct {
	MaintenanceMode bool `json:"maintenance_mode"`
}

// handleSiteStatus is unauthenticated so clients can show the maintenance
// banner before login.
func (a *api) handleSiteStatus(w http.ResponseWriter, r *http.Request) {
	if a.siteSvc == nil {
		WriteJSON(w, http.StatusOK, siteStatusResponse{})
		return
	}

	settings, err := a.siteSvc.Status(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, siteStatusResponse{MaintenanceMode: settings.MaintenanceMode})
}
