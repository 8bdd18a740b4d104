package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

var validate = validator.New()

type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/services", h.CreateService).Methods("POST")
	router.HandleFunc("/services", h.GetServices).Methods("GET")
	router.HandleFunc("/services/{id:[0-9]+}", h.GetService).Methods("GET")
	router.HandleFunc("/services/{id:[0-9]+}", h.UpdateService).Methods("PUT")
	router.HandleFunc("/services/{id:[0-9]+}", h.DeleteService).Methods("DELETE")
}

// CreateService adds a bookable session type to the catalog
func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string   `json:"name" validate:"required"`
		Description     string   `json:"description"`
		DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
		Price           float64  `json:"price" validate:"min=0"`
		Tags            []string `json:"tags"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Missing or invalid required fields", http.StatusBadRequest)
		return
	}

	if req.DurationMinutes == 0 {
		req.DurationMinutes = 60
	}

	service := models.Service{
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Tags:            req.Tags,
		Active:          true,
	}

	if err := h.db.Create(&service).Error; err != nil {
		http.Error(w, "Error creating service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(service)
}

// GetServices lists catalog entries, active ones by default
func (h *CatalogHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	query := h.db.Model(&models.Service{})

	if r.URL.Query().Get("include_inactive") != "true" {
		query = query.Where("active = ?", true)
	}

	if tag := r.URL.Query().Get("tag"); tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}

	var services []models.Service
	if err := query.Order("name ASC").Find(&services).Error; err != nil {
		http.Error(w, "Error retrieving services", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(services)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	var service models.Service
	result := h.db.First(&service, serviceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Service not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving service", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(service)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name            *string  `json:"name"`
		Description     *string  `json:"description"`
		DurationMinutes *int     `json:"duration_minutes"`
		Price           *float64 `json:"price"`
		Tags            []string `json:"tags"`
		Active          *bool    `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var service models.Service
	if result := h.db.First(&service, serviceID); result.Error != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < 15 || *req.DurationMinutes > 240 {
			http.Error(w, "Duration must be between 15 and 240 minutes", http.StatusBadRequest)
			return
		}
		service.DurationMinutes = *req.DurationMinutes
	}
	if req.Price != nil {
		if *req.Price < 0 {
			http.Error(w, "Price cannot be negative", http.StatusBadRequest)
			return
		}
		service.Price = *req.Price
	}
	if req.Tags != nil {
		service.Tags = req.Tags
	}
	if req.Active != nil {
		service.Active = *req.Active
	}

	if err := h.db.Save(&service).Error; err != nil {
		http.Error(w, "Error updating service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(service)
}

// DeleteService retires a catalog entry. Soft delete keeps existing
// bookings pointing at a resolvable row.
func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Service{}, serviceID)
	if result.Error != nil {
		http.Error(w, "Error deleting service", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Service deleted successfully",
	})
}
