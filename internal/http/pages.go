package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/movie-votes/internal/auth"
	"github.com/Clark-Hu/movie-votes/internal/repository"
)

const moviesPerPage = 10

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := s.repo.Movies.Count(ctx)
	if err != nil {
		s.renderInternalError(w, r, "list movies: count", err)
		return
	}

	page, err := resolvePage(r.URL.Query().Get("page"), total, moviesPerPage)
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, "Invalid page.")
		return
	}

	movies, err := s.repo.Movies.List(ctx, moviesPerPage, page.Offset())
	if err != nil {
		s.renderInternalError(w, r, "list movies", err)
		return
	}

	s.render(w, r, http.StatusOK, pageMovieList, "Movies", movieListView{
		Movies:     movies,
		Pagination: page,
	})
}

func (s *Server) handleMovieDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Movie not found.")
		return
	}
	ctx := r.Context()

	detail, err := s.repo.Movies.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "Movie not found.")
			return
		}
		s.renderInternalError(w, r, "movie detail", err)
		return
	}

	view := movieDetailView{Movie: detail}
	if requester := auth.FromContext(ctx); requester.Authenticated() {
		vote, err := s.votes.Resolve(ctx, detail.ID, requester.ID)
		if err != nil {
			s.renderInternalError(w, r, "movie detail: resolve vote", err)
			return
		}
		view.Vote = newVoteFormView(voteAction(vote), detail.Movie, requester.Username, vote.Value)
	}

	s.render(w, r, http.StatusOK, pageMovieDetail, detail.Title, view)
}

func (s *Server) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Person not found.")
		return
	}

	detail, err := s.repo.People.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.renderError(w, r, http.StatusNotFound, "Person not found.")
			return
		}
		s.renderInternalError(w, r, "person detail", err)
		return
	}

	s.render(w, r, http.StatusOK, pagePersonDetail, detail.FullName(), detail)
}

// pathID parses the {id} route parameter. Anything but a positive integer
// cannot name a stored record.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
