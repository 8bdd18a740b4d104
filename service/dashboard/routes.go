package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/fitcore/fitcore-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalMembers      int64            `json:"total_members"`
	TotalTrainers     int64            `json:"total_trainers"`
	ActiveMemberships int64            `json:"active_memberships"`
	BookingsToday     int64            `json:"bookings_today"`
	BookingsByStatus  map[string]int64 `json:"bookings_by_status"`
	TotalIncome       float64          `json:"total_income"`
}

// RegisterRoutes registers dashboard-related routes with Gorilla Mux
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	dashboardRouter := router.PathPrefix("/dashboard").Subrouter()
	dashboardRouter.HandleFunc("/stats", utils.AuthMiddleware(h.GetDashboardStats)).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	h.db.Model(&models.User{}).Where("role = ?", "member").Count(&stats.TotalMembers)
	h.db.Model(&models.Trainer{}).Count(&stats.TotalTrainers)
	h.db.Model(&models.Membership{}).
		Where("status = ? AND end_date > ?", "active", time.Now()).
		Count(&stats.ActiveMemberships)

	today := time.Now().Format("2006-01-02")
	h.db.Model(&models.Booking{}).Where("booking_date = ?", today).Count(&stats.BookingsToday)

	// Count bookings per lifecycle state
	stats.BookingsByStatus = make(map[string]int64)
	rows, err := h.db.Model(&models.Booking{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int64
			if err := rows.Scan(&status, &count); err == nil {
				stats.BookingsByStatus[status] = count
			}
		}
	}

	// Fetch Total Income from Paystack
	income, err := h.FetchTotalIncome()
	if err != nil {
		http.Error(w, "Failed to fetch total income", http.StatusInternalServerError)
		return
	}
	stats.TotalIncome = income

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *DashboardHandler) FetchTotalIncome() (float64, error) {
	paystackURL := "https://api.paystack.co/transaction/totals"
	apiKey := os.Getenv("PAYSTACK_SECRET_KEY")

	req, err := http.NewRequest("GET", paystackURL, nil)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Authorization", "Bearer "+apiKey)
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var response struct {
		Status bool `json:"status"`
		Data   struct {
			TotalVolume float64 `json:"total_volume"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, err
	}

	if !response.Status {
		return 0, fmt.Errorf("failed to fetch income from Paystack")
	}

	return response.Data.TotalVolume, nil
}
