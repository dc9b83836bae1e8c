package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
)

func ListTemplates(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpls, err := svc.ListTemplates(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, tpls)
	}
}

func CreateTemplate(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string  `json:"name"`
			Type  string  `json:"type"`
			Model *string `json:"model"`
			Items []struct {
				Name        string  `json:"name"`
				Description *string `json:"description"`
				IsRequired  *bool   `json:"is_required"`
			} `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in := cycle.CreateTemplateInput{Name: req.Name, Type: req.Type, Model: req.Model}
		for _, item := range req.Items {
			in.Items = append(in.Items, cycle.TemplateItemInput{
				Name:        item.Name,
				Description: item.Description,
				IsRequired:  item.IsRequired,
			})
		}
		tpl, err := svc.CreateTemplate(r.Context(), actorFrom(r), in)
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("template created", "name", tpl.Name, "type", tpl.Type)
		respondJSON(w, tpl)
	}
}

func UpdateTemplate(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     *string `json:"name"`
			IsActive *bool   `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tpl, err := svc.UpdateTemplate(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
			cycle.UpdateTemplateInput{Name: req.Name, IsActive: req.IsActive})
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, tpl)
	}
}

func DeleteTemplate(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTemplate(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}

func CycleChecklists(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cls, err := svc.ChecklistsForCycle(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, cls)
	}
}

// UpdateChecklistItem toggles completion on one instantiated checklist item.
func UpdateChecklistItem(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsCompleted bool    `json:"is_completed"`
			Notes       *string `json:"notes"`
			PhotoURL    *string `json:"photo_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		item, err := svc.SetChecklistItem(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
			cycle.ChecklistItemUpdate{IsCompleted: req.IsCompleted, Notes: req.Notes, PhotoURL: req.PhotoURL})
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, item)
	}
}
