package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/movie-votes/internal/auth"
	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/repository"
	"github.com/Clark-Hu/movie-votes/internal/voting"
)

const maxFormBody = 64 << 10

// handleCreateVote records the requester's first vote on the movie in the path.
func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Movie not found.")
		return
	}
	value, ok := s.formValue(w, r, "value")
	if !ok {
		return
	}
	requester := auth.FromContext(r.Context())

	vote, err := s.votes.Create(r.Context(), requester.ID, movieID, value)
	if err != nil {
		if verr, ok := voting.AsValidationErrors(err); ok {
			unsaved := domain.Vote{MovieID: movieID, UserID: requester.ID}
			s.renderVoteForm(w, r, http.StatusUnprocessableEntity, unsaved, 0, verr)
			return
		}
		s.renderInternalError(w, r, "create vote", err)
		return
	}

	http.Redirect(w, r, moviePath(vote.MovieID), http.StatusSeeOther)
}

// handleEditVote shows the owner the form for changing their vote.
func (s *Server) handleEditVote(w http.ResponseWriter, r *http.Request) {
	voteID, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Vote not found.")
		return
	}
	requester := auth.FromContext(r.Context())

	vote, err := s.votes.Load(r.Context(), voteID, requester.ID)
	if err != nil {
		s.voteError(w, r, err)
		return
	}
	s.renderVoteForm(w, r, http.StatusOK, vote, vote.Value, nil)
}

// handleUpdateVote changes the value of a vote the requester owns.
func (s *Server) handleUpdateVote(w http.ResponseWriter, r *http.Request) {
	voteID, ok := pathID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Vote not found.")
		return
	}
	value, ok := s.formValue(w, r, "value")
	if !ok {
		return
	}
	requester := auth.FromContext(r.Context())

	vote, err := s.votes.Update(r.Context(), voteID, requester.ID, value)
	if err != nil {
		if verr, ok := voting.AsValidationErrors(err); ok {
			current, loadErr := s.repo.Votes.GetByID(r.Context(), voteID)
			if loadErr != nil {
				s.voteError(w, r, loadErr)
				return
			}
			s.renderVoteForm(w, r, http.StatusUnprocessableEntity, current, 0, verr)
			return
		}
		s.voteError(w, r, err)
		return
	}

	http.Redirect(w, r, moviePath(vote.MovieID), http.StatusSeeOther)
}

func (s *Server) voteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Vote not found.")
	case errors.Is(err, voting.ErrPermissionDenied):
		s.renderError(w, r, http.StatusForbidden, "You cannot change another user's vote.")
	default:
		s.renderInternalError(w, r, "vote", err)
	}
}

// renderVoteForm shows the standalone vote page. A movie that no longer
// exists is rendered blank; the form errors already say so.
func (s *Server) renderVoteForm(w http.ResponseWriter, r *http.Request, status int, vote domain.Vote, selected int, verr *voting.ValidationErrors) {
	movie, err := s.repo.Movies.GetByID(r.Context(), vote.MovieID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.renderInternalError(w, r, "vote form: load movie", err)
			return
		}
		movie = domain.Movie{}
	}

	view := newVoteFormView(voteAction(vote), movie, auth.FromContext(r.Context()).Username, selected)
	view.Errors = verr
	s.render(w, r, status, pageVoteForm, "Vote", view)
}

func (s *Server) formValue(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Malformed form submission.")
		return "", false
	}
	return r.PostForm.Get(key), true
}
