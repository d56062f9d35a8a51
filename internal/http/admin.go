package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

const dateLayout = "2006-01-02"

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type movieCreateRequest struct {
	Title   string  `json:"title"`
	Plot    string  `json:"plot"`
	Year    int     `json:"year"`
	Rating  string  `json:"rating"`
	Runtime int     `json:"runtime"`
	Website *string `json:"website"`
}

type movieResponse struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Plot    string  `json:"plot"`
	Year    int     `json:"year"`
	Rating  string  `json:"rating"`
	Runtime int     `json:"runtime"`
	Website *string `json:"website,omitempty"`
}

type personCreateRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Born      string  `json:"born"`
	Died      *string `json:"died"`
}

type personResponse struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Born      string  `json:"born"`
	Died      *string `json:"died,omitempty"`
}

type creditCreateRequest struct {
	PersonID  int64   `json:"personId"`
	Role      string  `json:"role"`
	Character *string `json:"character"`
}

type creditResponse struct {
	MovieID   int64   `json:"movieId"`
	PersonID  int64   `json:"personId"`
	Role      string  `json:"role"`
	Character *string `json:"character,omitempty"`
}

// requireAdmin guards the catalog API with the configured bearer token. With
// no token configured the API does not exist.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		if !s.verifyBearer(r.Header.Get("Authorization")) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Rating = strings.ToUpper(strings.TrimSpace(req.Rating))
	if req.Rating == "" {
		req.Rating = domain.RatingNotRated
	}
	switch {
	case req.Title == "":
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required")
		return
	case req.Year <= 0:
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "year must be positive")
		return
	case req.Runtime < 0:
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "runtime must be non-negative")
		return
	case !domain.ValidMpaaRating(req.Rating):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be one of NR, G, PG, R")
		return
	}

	movie, err := s.repo.Movies.Create(r.Context(), repository.MovieCreateParams{
		Title:   req.Title,
		Plot:    strings.TrimSpace(req.Plot),
		Year:    req.Year,
		Rating:  req.Rating,
		Runtime: req.Runtime,
		Website: normalizeStringPtr(req.Website),
	})
	if err != nil {
		s.logger.Error("admin: create movie", "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create movie")
		return
	}

	s.logger.Info("admin: movie created", "movie_id", movie.ID, "title", movie.Title)
	w.Header().Set("Location", moviePath(movie.ID))
	s.respondJSON(w, http.StatusCreated, toMovieResponse(movie))
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var req personCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" && lastName == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "firstName or lastName is required")
		return
	}
	born, err := time.Parse(dateLayout, req.Born)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "born must follow YYYY-MM-DD format")
		return
	}
	var died *time.Time
	if d := normalizeStringPtr(req.Died); d != nil {
		parsed, err := time.Parse(dateLayout, *d)
		if err != nil {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "died must follow YYYY-MM-DD format")
			return
		}
		if parsed.Before(born) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "died cannot precede born")
			return
		}
		died = &parsed
	}

	person, err := s.repo.People.Create(r.Context(), repository.PersonCreateParams{
		FirstName: firstName,
		LastName:  lastName,
		Born:      born,
		Died:      died,
	})
	if err != nil {
		s.logger.Error("admin: create person", "error", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create person")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/people/%d", person.ID))
	s.respondJSON(w, http.StatusCreated, toPersonResponse(person))
}

func (s *Server) handleAddCredit(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(r)
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	var req creditCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !domain.ValidRole(role) {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "role must be one of director, writer, actor")
		return
	}
	if req.PersonID <= 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "personId is required")
		return
	}
	character := normalizeStringPtr(req.Character)
	if role != domain.RoleActor {
		character = nil
	}

	err := s.repo.People.AddCredit(r.Context(), repository.CreditParams{
		MovieID:   movieID,
		PersonID:  req.PersonID,
		Role:      role,
		Character: character,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Movie or person not found")
		case errors.Is(err, repository.ErrConflict):
			s.respondError(w, http.StatusConflict, "CONFLICT", "Credit already exists")
		default:
			s.logger.Error("admin: add credit", "movie_id", movieID, "person_id", req.PersonID, "error", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add credit")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, creditResponse{
		MovieID:   movieID,
		PersonID:  req.PersonID,
		Role:      role,
		Character: character,
	})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" || s.cfg.AdminToken == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:      movie.ID,
		Title:   movie.Title,
		Plot:    movie.Plot,
		Year:    movie.Year,
		Rating:  movie.Rating,
		Runtime: movie.Runtime,
		Website: movie.Website,
	}
}

func toPersonResponse(person domain.Person) personResponse {
	resp := personResponse{
		ID:        person.ID,
		FirstName: person.FirstName,
		LastName:  person.LastName,
		Born:      person.Born.Format(dateLayout),
	}
	if person.Died != nil {
		died := person.Died.Format(dateLayout)
		resp.Died = &died
	}
	return resp
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
