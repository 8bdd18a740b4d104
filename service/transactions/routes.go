package transactions

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/fitcore/fitcore-server/cmd/models"
	"github.com/fitcore/fitcore-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// TransactionFilter represents all possible filters for transactions
type TransactionFilter struct {
	UserID    uint
	Method    string
	Purpose   string
	MinAmount float64
	MaxAmount float64
	StartDate time.Time
	EndDate   time.Time
}

// PaginatedResponse represents the standard paginated API response structure
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Error      string         `json:"error,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}

type TransactionHandler struct {
	db *gorm.DB
}

func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{db: db}
}

// RegisterRoutes registers transaction-related routes with Gorilla Mux
func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	transactionRouter := router.PathPrefix("/transactions").Subrouter()

	transactionRouter.HandleFunc("", utils.AuthMiddleware(h.GetTransactions)).Methods("GET")
	transactionRouter.HandleFunc("/batch", utils.AuthMiddleware(h.CreateBatchTransactions)).Methods("POST")
}

// ParsePaginationParams extracts and validates pagination parameters from request
func ParsePaginationParams(r *http.Request) (int, int, error) {
	query := r.URL.Query()

	page := 1
	if query.Get("page") != "" {
		parsedPage, err := strconv.Atoi(query.Get("page"))
		if err != nil || parsedPage < 1 {
			return 0, 0, err
		}
		page = parsedPage
	}

	// Default to 10, cap at 100
	perPage := 10
	if query.Get("per_page") != "" {
		parsedPerPage, err := strconv.Atoi(query.Get("per_page"))
		if err != nil || parsedPerPage < 1 {
			return 0, 0, err
		}
		if parsedPerPage > 100 {
			perPage = 100
		} else {
			perPage = parsedPerPage
		}
	}

	return page, perPage, nil
}

// GetTransactions handles retrieving transactions with various filters
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var filter TransactionFilter
	var err error

	queryParams := r.URL.Query()

	if userIDStr := queryParams.Get("user_id"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 32)
		if err == nil {
			filter.UserID = uint(userID)
		}
	}

	filter.Method = queryParams.Get("method")
	filter.Purpose = queryParams.Get("purpose")

	if minAmountStr := queryParams.Get("min_amount"); minAmountStr != "" {
		filter.MinAmount, err = strconv.ParseFloat(minAmountStr, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid min_amount parameter")
			return
		}
	}

	if maxAmountStr := queryParams.Get("max_amount"); maxAmountStr != "" {
		filter.MaxAmount, err = strconv.ParseFloat(maxAmountStr, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid max_amount parameter")
			return
		}
	}

	layout := "2006-01-02"

	if startDateStr := queryParams.Get("start_date"); startDateStr != "" {
		filter.StartDate, err = time.Parse(layout, startDateStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid start_date format. Use YYYY-MM-DD")
			return
		}
	}

	if endDateStr := queryParams.Get("end_date"); endDateStr != "" {
		filter.EndDate, err = time.Parse(layout, endDateStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid end_date format. Use YYYY-MM-DD")
			return
		}
	}

	query := h.db.Model(&models.Transaction{}).Preload("User")

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}

	if filter.Purpose != "" {
		query = query.Where("purpose LIKE ?", "%"+filter.Purpose+"%")
	}

	if filter.MinAmount != 0 {
		query = query.Where("amount >= ?", filter.MinAmount)
	}

	if filter.MaxAmount != 0 {
		query = query.Where("amount <= ?", filter.MaxAmount)
	}

	if !filter.StartDate.IsZero() {
		query = query.Where("created_at >= ?", filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		// Add one day to include the end date fully
		endDatePlusDay := filter.EndDate.Add(24 * time.Hour)
		query = query.Where("created_at < ?", endDatePlusDay)
	}

	page, perPage, err := ParsePaginationParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	offset := (page - 1) * perPage

	var totalItems int64
	query.Count(&totalItems)

	var transactions []models.Transaction
	result := query.Order("created_at DESC").Limit(perPage).Offset(offset).Find(&transactions)
	if result.Error != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(perPage)))
	paginationMeta := PaginationMeta{
		CurrentPage: page,
		PerPage:     perPage,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}

	respondWithJSON(w, http.StatusOK, PaginatedResponse{
		Data:       transactions,
		Pagination: paginationMeta,
	})
}

type BatchTransactionRequest struct {
	Transactions []models.Transaction `json:"transactions"`
}

// CreateBatchTransactions records transactions settled outside Paystack,
// for example cash taken at the front desk
func (h *TransactionHandler) CreateBatchTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var batchRequest BatchTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&batchRequest); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if len(batchRequest.Transactions) == 0 {
		respondWithError(w, http.StatusBadRequest, "No transactions provided")
		return
	}

	if err := h.db.Create(&batchRequest.Transactions).Error; err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to insert transactions")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "Batch transactions created successfully"})
}

// Helper function to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, PaginatedResponse{Error: message})
}

// Helper function to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
