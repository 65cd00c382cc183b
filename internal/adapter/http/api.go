package http

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/pm-density-service/internal/account"
	"github.com/couchcryptid/pm-density-service/internal/domain"
)

const defaultUploadEncoding = "cp949"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type pointResponse struct {
	Hour    int      `json:"hour"`
	Density *float64 `json:"density"`
}

// summaryResponse mirrors domain.Summary with NaN statistics rendered as null.
type summaryResponse struct {
	Date        string          `json:"date"`
	NoData      bool            `json:"no_data"`
	Count       int             `json:"count"`
	Series      []pointResponse `json:"series"`
	MaxDensity  *float64        `json:"max_density"`
	MaxHour     *int            `json:"max_hour"`
	MinDensity  *float64        `json:"min_density"`
	MinHour     *int            `json:"min_hour"`
	MeanDensity *float64        `json:"mean_density"`
}

type readingResponse struct {
	Year    int      `json:"year"`
	Month   int      `json:"month"`
	Day     int      `json:"day"`
	Hour    int      `json:"hour"`
	Density *float64 `json:"density"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.accounts.CreateAccount(req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	case errors.Is(err, account.ErrAccountExists):
		writeError(w, http.StatusConflict, "username already in use")
	case errors.Is(err, account.ErrInvalidInput), errors.Is(err, account.ErrUnsupportedCharacter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("create account failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.accounts.Authenticate(req.Username, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated", "username": req.Username})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	year, month, day, ok := parseDate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": s.dashboard.Validate(year, month, day)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, month, day, ok := parseDate(w, r)
	if !ok {
		return
	}
	summary, err := s.dashboard.GetSummary(year, month, day)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(domain.DateKey{Year: year, Month: month, Day: day}, summary))
}

func (s *Server) handleUploadForDate(w http.ResponseWriter, r *http.Request) {
	year, month, day, ok := parseDate(w, r)
	if !ok {
		return
	}
	body, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	res, err := s.dashboard.UploadForDate(r.Context(), year, month, day, body, uploadEncoding(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"added":   toReadingResponses(res.Added),
		"summary": toSummaryResponse(domain.DateKey{Year: year, Month: month, Day: day}, res.Summary),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	added, err := s.dashboard.Upload(r.Context(), body, uploadEncoding(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": toReadingResponses(added)})
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "read upload body")
		return nil, false
	}
	return body, true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDecoding), errors.Is(err, domain.ErrMalformedInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func uploadEncoding(r *http.Request) string {
	if enc := r.URL.Query().Get("encoding"); enc != "" {
		return enc
	}
	return defaultUploadEncoding
}

// parseDate reads the {year}/{month}/{day} path values. Non-numeric values are
// rejected here; calendar validity is the dashboard's concern.
func parseDate(w http.ResponseWriter, r *http.Request) (int, int, int, bool) {
	var out [3]int
	for i, name := range []string{"year", "month", "day"} {
		v, err := strconv.Atoi(r.PathValue(name))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return 0, 0, 0, false
		}
		out[i] = v
	}
	return out[0], out[1], out[2], true
}

func toSummaryResponse(date domain.DateKey, s domain.Summary) summaryResponse {
	resp := summaryResponse{
		Date:   date.String(),
		NoData: s.NoData,
		Count:  s.Count,
		Series: make([]pointResponse, len(s.Series)),
	}
	for i, p := range s.Series {
		resp.Series[i] = pointResponse{Hour: p.Hour, Density: finite(p.Density)}
	}
	if s.NoData {
		return resp
	}
	resp.MaxDensity = finite(s.Max)
	resp.MinDensity = finite(s.Min)
	resp.MeanDensity = finite(s.Mean)
	if s.MaxHour >= 0 {
		resp.MaxHour = &s.MaxHour
	}
	if s.MinHour >= 0 {
		resp.MinHour = &s.MinHour
	}
	return resp
}

func toReadingResponses(readings []domain.Reading) []readingResponse {
	out := make([]readingResponse, len(readings))
	for i, r := range readings {
		out[i] = readingResponse{Year: r.Year, Month: r.Month, Day: r.Day, Hour: r.Hour, Density: finite(r.Density)}
	}
	return out
}

// finite returns nil for NaN and infinities, which JSON cannot represent.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
