package voting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/movie-votes/internal/domain"
	"github.com/Clark-Hu/movie-votes/internal/logging"
	"github.com/Clark-Hu/movie-votes/internal/repository"
)

type memVotes struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.Vote
	saves  int
	err    error
	// raceOnInsert simulates another request inserting the same pair between
	// validation and save.
	raceOnInsert bool
}

func newMemVotes() *memVotes {
	return &memVotes{byID: make(map[int64]domain.Vote)}
}

func (m *memVotes) FindByMovieAndUser(_ context.Context, movieID, userID int64) (domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Vote{}, m.err
	}
	for _, v := range m.byID {
		if v.MovieID == movieID && v.UserID == userID {
			return v, nil
		}
	}
	return domain.Vote{}, repository.ErrNotFound
}

func (m *memVotes) GetByID(_ context.Context, id int64) (domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return domain.Vote{}, repository.ErrNotFound
	}
	return v, nil
}

func (m *memVotes) Save(_ context.Context, vote domain.Vote) (domain.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if vote.Saved() {
		if _, ok := m.byID[vote.ID]; !ok {
			return domain.Vote{}, repository.ErrNotFound
		}
		vote.VotedOn = time.Now()
		m.byID[vote.ID] = vote
		return vote, nil
	}
	if m.raceOnInsert {
		return domain.Vote{}, repository.ErrConflict
	}
	for _, v := range m.byID {
		if v.MovieID == vote.MovieID && v.UserID == vote.UserID {
			return domain.Vote{}, repository.ErrConflict
		}
	}
	m.nextID++
	vote.ID = m.nextID
	vote.VotedOn = time.Now()
	m.byID[vote.ID] = vote
	return vote, nil
}

func (m *memVotes) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type idSet map[int64]bool

func (s idSet) Exists(_ context.Context, id int64) (bool, error) {
	return s[id], nil
}

type failingLookup struct{}

func (failingLookup) Exists(context.Context, int64) (bool, error) {
	return false, errors.New("db down")
}

const (
	movieID  int64 = 5
	otherMov int64 = 6
	userID   int64 = 7
	otherUsr int64 = 8
)

func newTestService() (*Service, *memVotes) {
	votes := newMemVotes()
	svc := NewService(votes, idSet{movieID: true, otherMov: true}, idSet{userID: true, otherUsr: true}, logging.Discard())
	return svc, votes
}

func TestResolve_UnsavedWhenNoVote(t *testing.T) {
	svc, _ := newTestService()

	vote, err := svc.Resolve(context.Background(), movieID, userID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if vote.Saved() {
		t.Fatalf("expected unsaved vote, got id %d", vote.ID)
	}
	if vote.MovieID != movieID || vote.UserID != userID {
		t.Fatalf("vote references (%d, %d), want (%d, %d)", vote.MovieID, vote.UserID, movieID, userID)
	}
}

func TestResolve_ReturnsPersistedVote(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, movieID, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resolved, err := svc.Resolve(ctx, movieID, userID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.ID != created.ID || resolved.Value != 8 {
		t.Fatalf("resolved = %+v, want id %d value 8", resolved, created.ID)
	}

	other, err := svc.Resolve(ctx, movieID, otherUsr)
	if err != nil {
		t.Fatalf("Resolve other user: %v", err)
	}
	if other.Saved() {
		t.Fatalf("another user's vote leaked: %+v", other)
	}
}

func TestResolve_StorageError(t *testing.T) {
	svc, votes := newTestService()
	votes.err = errors.New("connection reset")

	if _, err := svc.Resolve(context.Background(), movieID, userID); err == nil {
		t.Fatalf("expected storage error to surface")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		form      VoteForm
		wantField string
		wantValue int
	}{
		{"lowest value", VoteForm{UserID: userID, MovieID: movieID, Value: "1"}, "", 1},
		{"highest value", VoteForm{UserID: userID, MovieID: movieID, Value: " 10 "}, "", 10},
		{"zero", VoteForm{UserID: userID, MovieID: movieID, Value: "0"}, FieldValue, 0},
		{"too high", VoteForm{UserID: userID, MovieID: movieID, Value: "11"}, FieldValue, 0},
		{"negative", VoteForm{UserID: userID, MovieID: movieID, Value: "-1"}, FieldValue, 0},
		{"not a number", VoteForm{UserID: userID, MovieID: movieID, Value: "eight"}, FieldValue, 0},
		{"fraction", VoteForm{UserID: userID, MovieID: movieID, Value: "7.5"}, FieldValue, 0},
		{"missing", VoteForm{UserID: userID, MovieID: movieID, Value: ""}, FieldValue, 0},
		{"unknown movie", VoteForm{UserID: userID, MovieID: 404, Value: "5"}, FieldMovie, 0},
		{"unknown user", VoteForm{UserID: 404, MovieID: movieID, Value: "5"}, FieldUser, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, votes := newTestService()
			instance := domain.Vote{MovieID: tt.form.MovieID, UserID: tt.form.UserID}

			vote, err := svc.Validate(context.Background(), tt.form, instance)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if vote.Value != tt.wantValue || vote.Saved() {
					t.Fatalf("vote = %+v, want unsaved value %d", vote, tt.wantValue)
				}
				return
			}
			verr, ok := AsValidationErrors(err)
			if !ok {
				t.Fatalf("error = %v, want *ValidationErrors", err)
			}
			if !verr.Has(tt.wantField) {
				t.Fatalf("errors = %+v, want field %q", verr.Fields, tt.wantField)
			}
			if votes.saves != 0 {
				t.Fatalf("validation touched storage")
			}
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Validate(context.Background(), VoteForm{UserID: 99, MovieID: 98, Value: "x"}, domain.Vote{})
	verr, ok := AsValidationErrors(err)
	if !ok {
		t.Fatalf("error = %v, want *ValidationErrors", err)
	}
	for _, f := range []string{FieldValue, FieldMovie, FieldUser} {
		if !verr.Has(f) {
			t.Fatalf("missing error for %s: %+v", f, verr.Fields)
		}
	}
}

func TestValidate_LookupFailure(t *testing.T) {
	svc := NewService(newMemVotes(), failingLookup{}, idSet{userID: true}, logging.Discard())

	_, err := svc.Validate(context.Background(), VoteForm{UserID: userID, MovieID: movieID, Value: "3"}, domain.Vote{})
	if err == nil {
		t.Fatalf("expected lookup failure")
	}
	if _, ok := AsValidationErrors(err); ok {
		t.Fatalf("lookup failure must not look like a validation error")
	}
}

func TestCreate_PersistsExactlyOnce(t *testing.T) {
	svc, votes := newTestService()
	ctx := context.Background()

	vote, err := svc.Create(ctx, userID, movieID, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !vote.Saved() || vote.Value != 8 || vote.MovieID != movieID || vote.UserID != userID {
		t.Fatalf("created = %+v", vote)
	}

	_, err = svc.Create(ctx, userID, movieID, "3")
	verr, ok := AsValidationErrors(err)
	if !ok || len(verr.NonField) == 0 {
		t.Fatalf("second create error = %v, want duplicate validation error", err)
	}
	if votes.count() != 1 {
		t.Fatalf("stored votes = %d, want 1", votes.count())
	}

	if _, err := svc.Create(ctx, otherUsr, movieID, "3"); err != nil {
		t.Fatalf("other user's create: %v", err)
	}
	if votes.count() != 2 {
		t.Fatalf("stored votes = %d, want 2", votes.count())
	}
}

func TestCreate_ConflictOnSaveIsValidationError(t *testing.T) {
	svc, votes := newTestService()
	votes.raceOnInsert = true

	_, err := svc.Create(context.Background(), userID, movieID, "4")
	verr, ok := AsValidationErrors(err)
	if !ok || len(verr.NonField) != 1 {
		t.Fatalf("error = %v, want duplicate validation error", err)
	}
}

func TestAuthorize(t *testing.T) {
	vote := domain.Vote{ID: 1, MovieID: movieID, UserID: userID, Value: 5}

	got, err := Authorize(vote, userID)
	if err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if got != vote {
		t.Fatalf("Authorize changed the vote: %+v", got)
	}

	for _, requester := range []int64{otherUsr, 0} {
		if _, err := Authorize(vote, requester); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Authorize(requester=%d) = %v, want ErrPermissionDenied", requester, err)
		}
	}
}

func TestUpdate_Owner(t *testing.T) {
	svc, votes := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, movieID, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID, userID, "2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID || updated.Value != 2 || updated.MovieID != movieID || updated.UserID != userID {
		t.Fatalf("updated = %+v", updated)
	}
	if votes.count() != 1 {
		t.Fatalf("update created a new record")
	}
}

func TestUpdate_NonOwnerLeavesVoteUnchanged(t *testing.T) {
	svc, votes := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, movieID, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	savesBefore := votes.saves

	for _, value := range []string{"1", "bogus"} {
		if _, err := svc.Update(ctx, created.ID, otherUsr, value); !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Update by non-owner = %v, want ErrPermissionDenied", err)
		}
	}
	if votes.saves != savesBefore {
		t.Fatalf("non-owner update reached storage")
	}
	stored, _ := votes.GetByID(ctx, created.ID)
	if stored.Value != 8 {
		t.Fatalf("stored value = %d, want 8", stored.Value)
	}
}

func TestUpdate_InvalidValue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, userID, movieID, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.Update(ctx, created.ID, userID, "42")
	verr, ok := AsValidationErrors(err)
	if !ok || !verr.Has(FieldValue) {
		t.Fatalf("error = %v, want value validation error", err)
	}
}

func TestUpdate_UnknownVote(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Update(context.Background(), 12345, userID, "5"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

// Movie 5 has no vote from user 7; after voting 8 the resolver returns the
// persisted vote that the detail page will target for updates.
func TestVoteLifecycleOwnerFlow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	before, err := svc.Resolve(ctx, 5, 7)
	if err != nil || before.Saved() {
		t.Fatalf("before = %+v, %v; want unsaved", before, err)
	}

	created, err := svc.Create(ctx, 7, 5, "8")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	after, err := svc.Resolve(ctx, 5, 7)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if after.ID != created.ID || after.Value != 8 {
		t.Fatalf("after = %+v, want id %d value 8", after, created.ID)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	verr := &ValidationErrors{}
	verr.add(FieldValue, "bad")
	verr.add(FieldMovie, "gone")
	verr.addNonField("dup")

	want := "invalid vote: movie: gone, value: bad, dup"
	if verr.Error() != want {
		t.Fatalf("Error() = %q, want %q", verr.Error(), want)
	}
}
