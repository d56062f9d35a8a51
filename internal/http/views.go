package httpserver

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Clark-Hu/movie-votes/internal/auth"
	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/voting"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageMovieList    = "movie_list"
	pageMovieDetail  = "movie_detail"
	pagePersonDetail = "person_detail"
	pageVoteForm     = "vote_form"
	pageLogin        = "login"
	pageError        = "error"
)

var funcMap = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"votePath":  votePath,
	"moviePath": moviePath,
}

// pages holds one template set per page, each parsed with the shared layout.
var pages = mustParsePages(
	pageMovieList,
	pageMovieDetail,
	pagePersonDetail,
	pageVoteForm,
	pageLogin,
	pageError,
)

func mustParsePages(names ...string) map[string]*template.Template {
	set := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS,
			"templates/base.html",
			"templates/vote_fields.html",
			"templates/"+name+".html",
		)
		if err != nil {
			panic(fmt.Sprintf("parse %s template: %v", name, err))
		}
		set[name] = tmpl
	}
	return set
}

// layout is what every page hands to the base template.
type layout struct {
	Title     string
	Requester auth.Requester
	Data      any
}

type movieListView struct {
	Movies     []domain.Movie
	Pagination pageInfo
}

type movieDetailView struct {
	Movie domain.MovieDetail
	Vote  *voteFormView
}

// voteFormView renders the value picker. Movie and user are shown but never
// submitted.
type voteFormView struct {
	Action   string
	Movie    domain.Movie
	Username string
	Selected int
	Choices  []int
	Errors   *voting.ValidationErrors
}

type loginView struct {
	Next     string
	Username string
	Error    string
}

type errorView struct {
	Status  int
	Message string
}

func newVoteFormView(action string, movie domain.Movie, username string, selected int) *voteFormView {
	choices := make([]int, 0, domain.MaxVoteValue-domain.MinVoteValue+1)
	for v := domain.MinVoteValue; v <= domain.MaxVoteValue; v++ {
		choices = append(choices, v)
	}
	return &voteFormView{
		Action:   action,
		Movie:    movie,
		Username: username,
		Selected: selected,
		Choices:  choices,
	}
}

// voteAction is where the vote form posts: the create route for an unsaved
// vote, the vote's own update route otherwise.
func voteAction(v domain.Vote) string {
	if v.Saved() {
		return votePath(v.ID)
	}
	return moviePath(v.MovieID) + "/votes"
}

func moviePath(id int64) string { return fmt.Sprintf("/movies/%d", id) }

func votePath(id int64) string { return fmt.Sprintf("/votes/%d", id) }

// render executes the page into a buffer first so a template failure still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	tmpl, ok := pages[page]
	if !ok {
		s.logger.Error("render: unknown page", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "base", layout{
		Title:     title,
		Requester: auth.FromContext(r.Context()),
		Data:      data,
	})
	if err != nil {
		s.logger.Error("render: execute template", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, pageError, http.StatusText(status), errorView{Status: status, Message: message})
}

func (s *Server) renderInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "error", err, "path", r.URL.Path, "request_id", requestID(r))
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong.")
}
